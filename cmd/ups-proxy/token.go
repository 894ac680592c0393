package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Obtain an OAuth token and print its status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if _, err := a.Tokens.Token(cmd.Context()); err != nil {
			return err
		}
		fmt.Println(a.Tokens.Status())
		return nil
	},
}
