package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "clipchain",
		Short:        "Generate, continue, and stitch rendered video clips",
		SilenceUsage: true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	pf := root.PersistentFlags()
	pf.String("backend", "sora", "Render backend (sora or veo)")
	pf.String("api-key", "", "API key for the sora backend (defaults to OPENAI_API_KEY)")
	pf.String("model", "", "Default model identifier")
	pf.String("size", "", "Default output size (e.g. 1280x720)")
	pf.Int("seconds", 0, "Default clip length in seconds")
	pf.String("data-dir", "videos", "Directory for clip files and metadata")
	pf.Int("poll-interval-ms", 5000, "Poll interval while waiting for renders")
	pf.Bool("verbose", false, "Enable debug logging")

	pf.String("gcp-project", "", "Google Cloud project id for veo (defaults to GOOGLE_CLOUD_PROJECT)")
	pf.String("gcp-location", "", "Google Cloud location for veo (defaults to GOOGLE_CLOUD_LOCATION)")
	pf.String("gcp-access-token", "", "Pre-fetched access token for veo (defaults to GOOGLE_CLOUD_ACCESS_TOKEN)")
	pf.String("gcp-storage-uri", "", "Cloud Storage URI for veo outputs instead of inline bytes")
	pf.Bool("gcp-generate-audio", true, "Whether veo should generate audio")
	pf.String("gcp-resolution", "", "Explicit veo resolution (720p or 1080p)")
	pf.Bool("gcp-enhance-prompt", true, "Whether veo should enhance prompts")

	root.AddCommand(
		newCreateCmd(),
		newContinueCmd(),
		newListCmd(),
		newDownloadCmd(),
		newStitchCmd(),
	)
	return root
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
