package cmd

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/clambin/getair-monitor/internal/cmd/control"
	"github.com/clambin/getair-monitor/internal/cmd/monitor"
	"github.com/clambin/getair-monitor/internal/cmd/status"
	"github.com/clambin/getair-monitor/internal/getair"
	"github.com/clambin/go-common/charmer"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFilename string
	RootCmd        = cobra.Command{
		Use:   "getair",
		Short: "Utility for getAir ventilation systems",
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			charmer.SetJSONLogger(cmd, viper.GetBool("debug"))
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&configFilename, "config", "", "Configuration file")
	RootCmd.PersistentFlags().Bool("debug", false, "Log debug messages")
	_ = viper.BindPFlag("debug", RootCmd.PersistentFlags().Lookup("debug"))

	RootCmd.AddCommand(&monitor.Cmd, &status.Cmd, &control.Cmd)
}

var args = charmer.Arguments{
	"debug":            {Default: false, Help: "Log debug messages"},
	"getair.authURL":   {Default: "", Help: "getAir authentication endpoint"},
	"getair.apiURL":    {Default: "", Help: "getAir API endpoint"},
	"getair.clientID":  {Default: "", Help: "getAir client ID"},
	"getair.username":  {Default: "", Help: "getAir username"},
	"getair.password":  {Default: "", Help: "getAir password"},
	"getair.deviceID":  {Default: "", Help: "ID of the getAir device"},
	"zones.zone1":      {Default: true, Help: "Manage zone 1"},
	"zones.zone2":      {Default: true, Help: "Manage zone 2"},
	"zones.zone3":      {Default: true, Help: "Manage zone 3"},
	"auth.settleDelay": {Default: getair.DefaultSettleDelay, Help: "Delay after authenticating, before the token is used"},
	"auth.refreshSkew": {Default: getair.DefaultRefreshSkew, Help: "Renew the token this long before it expires"},
	"tokenstore.path":  {Default: "", Help: "Database to store the token, so restarts don't need to log in again"},
	"http.timeout":     {Default: 30 * time.Second, Help: "Timeout for calls to the getAir service"},
}

func initConfig() {
	_ = godotenv.Load()

	if configFilename != "" {
		viper.SetConfigFile(configFilename)
	} else {
		viper.AddConfigPath("/etc/getair-monitor/")
		viper.AddConfigPath("$HOME/.getair-monitor")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
	}

	if err := charmer.SetDefaults(viper.GetViper(), args); err != nil {
		panic("failed to set viper defaults: " + err.Error())
	}

	viper.SetEnvPrefix("GETAIR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFilename != "" || !errors.As(err, &notFound) {
			slog.Error("failed to read config file", "err", err)
			os.Exit(1)
		}
	}
}
