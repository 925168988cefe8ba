package cli

import (
	"github.com/spf13/cobra"

	"plato-wp36.eu/testbench/common"
)

var refreshSchema bool

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "create the store schema, or recreate it entirely with --refresh",
	Run:   runInitdb,
}

func init() {
	initdbCmd.Flags().BoolVar(&refreshSchema, "refresh", false, "drop and recreate every table before creating the schema")
	RootCmd.AddCommand(initdbCmd)
}

func runInitdb(cmd *cobra.Command, args []string) {
	settings := loadSettings()
	logger := newLogger(settings)
	s := openStore(settings)

	ctxLogger := common.NewContextLogger(logger, map[string]interface{}{"refresh": refreshSchema})
	err := common.LogOperation(ctxLogger, "schema migration", func() error {
		return s.EnsureSchema(refreshSchema)
	})
	if err != nil {
		logger.WithError(err).Fatal("initdb: ensuring schema")
	}
}
