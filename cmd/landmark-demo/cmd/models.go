package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gophi/landmark/internal/models"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the ONNX models this pipeline knows how to load",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		dir := models.GetModelsDir(cfg.ModelsDir)

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "models directory: %s\n\n", dir); err != nil {
			return err
		}

		for _, m := range models.ListAvailableModels() {
			path := models.ResolveModelPath(cfg.ModelsDir, m.Category, m.Filename)
			status := "missing"
			if models.ValidateModelExists(path) == nil {
				status = "present"
			}
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-28s %-10s %-8s %s\n", m.Name, m.Category, status, m.Description); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
