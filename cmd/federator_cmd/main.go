package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/tokenbridge/federator/cmd"
	"github.com/tokenbridge/federator/logconfig"
)

const (
	ENV_CONFIG_FILE_PATH = "FEDERATOR_CONFIG"
)

func main() {
	// Tool to read environment variables
	viper.AutomaticEnv()

	// LOG_ENV=production switches to the machine-readable format.
	switch viper.GetString("LOG_ENV") {
	case "production":
		logconfig.ConfigProductionLogger()
	case "debug":
		logconfig.ConfigDebugLogger()
	default:
		logconfig.ConfigInfoLogger()
	}

	// Accessing an environment variable of configuration file location.
	_config_file := viper.GetString(ENV_CONFIG_FILE_PATH)
	fmt.Printf("Federator server configuration file = %s\n", _config_file)

	// See if file exists
	if !cmd.FileExists(_config_file) {
		fmt.Printf("Federator server configuration file not found: %s\n", _config_file)
		return
	}

	// Read from config file.
	success := initializeViper(_config_file)
	if !success {
		return
	}

	// Make the configuration
	fsc := PrepareFederatorServerConfig()
	if fsc == nil {
		fmt.Printf("Error loading federator server configuration\n")
		return
	}

	fmt.Println("Starting federator server... press Ctrl+C to kill the server")
	// Start server and block.
	cmd.StartFederatorServerAndWait(fsc)
}

func initializeViper(filePath string) bool {
	viper.SetConfigFile(filePath)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Error reading configuration file, %s", err)
		return false
	}
	return true
}

// PrepareFederatorServerConfig reads configuration variables and returns a FederatorServerConfig.
func PrepareFederatorServerConfig() *cmd.FederatorServerConfig {
	// TOKEN_TABLE maps sidechain token uids to evm token addresses,
	// eg. TOKEN_TABLE: {"00c3": "0x5FbD..."}
	tokenTable := viper.GetStringMapString("TOKEN_TABLE")
	if len(tokenTable) == 0 {
		fmt.Printf("TOKEN_TABLE is empty, no token can be bridged\n")
		return nil
	}

	threshold := viper.GetInt("SIGNATURE_THRESHOLD")
	if threshold < 1 {
		fmt.Printf("SIGNATURE_THRESHOLD must be at least 1\n")
		return nil
	}

	return &cmd.FederatorServerConfig{
		// evm side
		EthRpcUrl:              viper.GetString("ETH_RPC_URL"),
		EthChainId:             viper.GetInt64("ETH_CHAIN_ID"),
		EthConfirmations:       viper.GetUint64("ETH_CONFIRMATIONS"),
		FederationContractAddr: viper.GetString("FEDERATION_CONTRACT_ADDR"),
		FederatorAccountPriv:   viper.GetString("FEDERATOR_ACCOUNT_PRIV"),
		// wallet side
		WalletBaseUrl:    viper.GetString("WALLET_BASE_URL"),
		WalletId:         viper.GetString("WALLET_ID"),
		MultisigWalletId: viper.GetString("MULTISIG_WALLET_ID"),
		WalletSeedKey:    viper.GetString("WALLET_SEED_KEY"),
		// queue side
		QueueKind: viper.GetString("QUEUE_KIND"),
		QueueUrl:  viper.GetString("QUEUE_URL"),
		QueueName: viper.GetString("QUEUE_NAME"),
		// federation side
		SignatureThreshold: threshold,
		TokenTable:         tokenTable,
		// Http side
		HttpIp:   viper.GetString("HTTP_IP"),
		HttpPort: viper.GetString("HTTP_PORT"),
	}
}
