package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/wisy/internal/secrets"
	"github.com/spigell/wisy/internal/shopify"
)

const (
	PromptOverwrite = "Overwrite"
	PromptAbort     = "Abort"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export Shopify products into the treatment catalog file",
	Run: func(cmd *cobra.Command, _ []string) {
		export(cmd)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("output", "o", "", "catalog file to write (default is treatments.json)")
	exportCmd.Flags().BoolP("yes", "y", false, "overwrite an existing catalog without asking")
	exportCmd.Flags().Bool("stdout", false, "print the catalog instead of writing a file")

	viper.BindPFlag("shopify.output", exportCmd.Flags().Lookup("output"))
}

func export(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := newLogger()
	defer logger.Sync()

	config := loadConfig(logger)
	cfg := config.Shopify

	token, err := secrets.Load(secrets.Source{
		Name:  "shopify access token",
		Value: cfg.Token,
		File:  cfg.TokenFile,
		Env:   "SHOPIFY_API_PASSWORD",
	})
	if err != nil {
		logger.Fatal(
			"loading shopify token",
			zap.Error(err),
			zap.String("hint", "set SHOPIFY_API_PASSWORD, SHOPIFY_TOKEN_FILE or the 'shopify.token-file' key in the configuration file"),
		)
	}

	client, err := shopify.New(cfg.ShopName, cfg.APIVersion, token, logger.Named("shopify"))
	if err != nil {
		logger.Fatal("creating shopify client", zap.Error(err), zap.String("hint", "set SHOPIFY_SHOP_NAME"))
	}

	products, err := client.Products(ctx)
	if err != nil {
		logger.Fatal("fetching products", zap.Error(err))
	}

	records := shopify.ToRecords(products)
	logger.Info("products mapped to treatments",
		zap.Int("products", len(products)),
		zap.Int("treatments", len(records)),
	)

	if toStdout, _ := cmd.Flags().GetBool("stdout"); toStdout {
		if err := shopify.Encode(cmd.OutOrStdout(), records); err != nil {
			logger.Fatal("writing catalog", zap.Error(err))
		}
		return
	}

	output := strings.TrimSpace(cfg.Output)
	if output == "" {
		output = "treatments.json"
	}

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		if _, err := os.Stat(output); err == nil {
			prompt := promptui.Select{
				Label: output + " exists. Overwrite?",
				Items: []string{PromptOverwrite, PromptAbort},
			}
			_, action, err := prompt.Run()
			if err != nil && !errors.Is(err, promptui.ErrInterrupt) {
				logger.Fatal("exiting", zap.Error(err))
			}
			if action != PromptOverwrite {
				logger.Info("exiting", zap.String("reason", "overwrite declined"))
				return
			}
		}
	}

	if err := shopify.WriteFile(output, records); err != nil {
		logger.Fatal("writing catalog", zap.Error(err))
	}

	logger.Info("catalog written", zap.String("filename", output), zap.Int("treatments", len(records)))
}
