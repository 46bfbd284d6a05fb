package cli

import (
	"fmt"

	"github.com/clipchain/clipchain/internal/manager"
	"github.com/spf13/cobra"
)

func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Render a brand-new clip",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := buildManager(cmd)
			if err != nil {
				return err
			}
			id, _ := cmd.Flags().GetString("id")
			prompt, _ := cmd.Flags().GetString("prompt")
			model, _ := cmd.Flags().GetString("model")
			size, _ := cmd.Flags().GetString("size")
			seconds, _ := cmd.Flags().GetInt("seconds")

			md, err := m.Create(cmd.Context(), manager.CreateRequest{
				LocalID: id,
				Prompt:  prompt,
				Model:   model,
				Size:    size,
				Seconds: seconds,
			})
			if err != nil {
				return err
			}
			printMetadata(cmd.OutOrStdout(), md)
			return nil
		},
	}
	cmd.Flags().String("id", "", "Local identifier used for filenames (e.g. intro-001)")
	cmd.Flags().String("prompt", "", "Prompt describing the clip")
	cmd.Flags().String("model", "", "Override the model for this clip")
	cmd.Flags().String("size", "", "Override the size for this clip")
	cmd.Flags().Int("seconds", 0, "Override the duration in seconds")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func newContinueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "continue",
		Short: "Render a continuation seeded by the last frame of an existing clip",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := buildManager(cmd)
			if err != nil {
				return err
			}
			from, _ := cmd.Flags().GetString("from")
			id, _ := cmd.Flags().GetString("id")
			prompt, _ := cmd.Flags().GetString("prompt")
			model, _ := cmd.Flags().GetString("model")
			size, _ := cmd.Flags().GetString("size")
			seconds, _ := cmd.Flags().GetInt("seconds")

			md, err := m.Continue(cmd.Context(), manager.ContinueRequest{
				ParentLocalID: from,
				LocalID:       id,
				Prompt:        prompt,
				Model:         model,
				Size:          size,
				Seconds:       seconds,
			})
			if err != nil {
				return err
			}
			printMetadata(cmd.OutOrStdout(), md)
			return nil
		},
	}
	cmd.Flags().String("from", "", "Local identifier of the clip to extend")
	cmd.Flags().String("id", "", "Local identifier to assign to the new clip")
	cmd.Flags().String("prompt", "", "Prompt defining the next beat of the scene")
	cmd.Flags().String("model", "", "Override the model for this clip")
	cmd.Flags().String("size", "", "Override the size for this clip")
	cmd.Flags().Int("seconds", 0, "Override the duration in seconds")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List locally stored clips and continuations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := buildManager(cmd)
			if err != nil {
				return err
			}
			clips, err := m.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(clips) == 0 {
				fmt.Fprintln(out, mutedStyle.Render("(no clips recorded)"))
				return nil
			}
			for _, md := range clips {
				printMetadata(out, md)
			}
			return nil
		},
	}
}

func newDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download an asset variant (video, thumbnail, spritesheet) for a clip",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := buildManager(cmd)
			if err != nil {
				return err
			}
			id, _ := cmd.Flags().GetString("id")
			variantStr, _ := cmd.Flags().GetString("variant")
			output, _ := cmd.Flags().GetString("output")

			variant, err := parseVariant(variantStr)
			if err != nil {
				return err
			}
			if err := m.DownloadAsset(cmd.Context(), id, variant, output); err != nil {
				return fmt.Errorf("download asset: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "downloaded %s -> %s\n", variant, output)
			return nil
		},
	}
	cmd.Flags().String("id", "", "Local identifier of the clip")
	cmd.Flags().String("variant", "video", "Asset variant to download")
	cmd.Flags().String("output", "", "Output path for the asset")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newStitchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stitch --id <output-id> <clip-id>...",
		Short: "Concatenate local clips into one output file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := buildManager(cmd)
			if err != nil {
				return err
			}
			id, _ := cmd.Flags().GetString("id")
			path, err := m.Stitch(cmd.Context(), id, args)
			if err != nil {
				return fmt.Errorf("stitch clips: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stitched %s -> %s\n", id, path)
			return nil
		},
	}
	cmd.Flags().String("id", "", "Local identifier for the stitched output file")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
