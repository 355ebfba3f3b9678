package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wislaw/lexchat/pkg/documents"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Manage the backend's indexed documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Backend.Timeout)
		defer cancel()

		docs, err := a.docs.List(ctx)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Println("No documents indexed.")
			return nil
		}
		for _, d := range docs {
			fmt.Printf("%-40s %-20s %s\n", d.FileName, d.DocumentType, d.Jurisdiction)
		}
		return nil
	},
}

var documentsUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a document for indexing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Backend.Timeout)
		defer cancel()

		meta := documents.UploadMeta{
			DocumentType: cmd.Flag("type").Value.String(),
			Jurisdiction: cmd.Flag("jurisdiction").Value.String(),
			LawStatus:    cmd.Flag("status").Value.String(),
		}
		if err := a.docs.Upload(ctx, args[0], meta); err != nil {
			return err
		}
		fmt.Println("Uploaded", args[0], "— processing started in the background.")
		return nil
	},
}

func init() {
	documentsUploadCmd.Flags().String("type", "statute", "document type")
	documentsUploadCmd.Flags().String("jurisdiction", "wisconsin", "jurisdiction")
	documentsUploadCmd.Flags().String("status", "current", "law status")

	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsUploadCmd)
}
