package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	uploadBucket      string
	uploadDestination string
	uploadPrivate     bool
)

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().StringVar(&uploadBucket, "bucket", "", "target bucket (defaults to the audio bucket)")
	uploadCmd.Flags().StringVar(&uploadDestination, "dest", "", "object path (defaults to text-files/{ms}_{name})")
	uploadCmd.Flags().BoolVar(&uploadPrivate, "private", false, "do not make the object public")
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a local file to Cloud Storage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, cfg, err := build(ctx)
		if err != nil {
			return err
		}
		defer closeApp(a)

		bucket := uploadBucket
		if bucket == "" {
			bucket = cfg.BucketName()
		}
		up, err := a.Storage.UploadFile(ctx, args[0], bucket, uploadDestination, !uploadPrivate)
		if err != nil {
			return fmt.Errorf("upload %s: %w", args[0], err)
		}
		return printJSON(up)
	},
}
