package main

import (
	"fmt"

	"github.com/dvcrn/ups-proxy/internal/config"
	"github.com/dvcrn/ups-proxy/internal/credentials"
	"github.com/spf13/cobra"
)

var (
	initCreds  credentials.ClientCredentials
	initForce  bool
	initToKeys bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a credentials file",
	Long: `Write the UPS client credentials to the credentials file, or to the macOS
keychain with --keychain. Values not given on the command line are taken
from UPS_CLIENT_ID, UPS_CLIENT_SECRET and UPS_MERCHANT_ID, and anything
still missing is written as a <FILL-ME> placeholder.`,
	RunE: runInit,
}

func init() {
	f := initCmd.Flags()
	f.StringVar(&initCreds.ClientID, "client-id", "", "UPS OAuth client ID")
	f.StringVar(&initCreds.ClientSecret, "client-secret", "", "UPS OAuth client secret")
	f.StringVar(&initCreds.MerchantID, "merchant-id", "", "UPS account number sent as x-merchant-id")
	f.BoolVar(&initForce, "force", false, "Overwrite an existing credentials file")
	f.BoolVar(&initToKeys, "keychain", false, "Store the credentials in the macOS keychain instead of a file")
}

func runInit(cmd *cobra.Command, args []string) error {
	creds := withEnvDefaults(initCreds, credentials.NewEnvCredentialsFetcher().Partial())

	if initToKeys {
		keychain := credentials.NewKeychainCredentialsFetcherWithLogger(log)
		defer keychain.Close()
		if err := keychain.Store(&creds); err != nil {
			return err
		}
		fmt.Printf("Stored credentials in keychain item %q\n", credentials.KeychainService)
		return nil
	}

	path := v.GetString(config.KeyCredentialsFile)
	if credentials.FileExists(path) && !initForce {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}
	if err := credentials.InitFromCredentials(path, &creds); err != nil {
		return err
	}
	fmt.Printf("Wrote credentials to %s\n", path)
	if !creds.Complete() {
		fmt.Println("Fill in the <FILL-ME> values before starting the proxy.")
	}
	return nil
}

// withEnvDefaults fills each empty field of creds from env on its own.
func withEnvDefaults(creds credentials.ClientCredentials, env *credentials.ClientCredentials) credentials.ClientCredentials {
	if creds.ClientID == "" {
		creds.ClientID = env.ClientID
	}
	if creds.ClientSecret == "" {
		creds.ClientSecret = env.ClientSecret
	}
	if creds.MerchantID == "" {
		creds.MerchantID = env.MerchantID
	}
	return creds
}
