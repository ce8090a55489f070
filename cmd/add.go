package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"ccdash/config/models"
	"ccdash/internal/utils"

	"github.com/spf13/cobra"
)

var (
	addName        string
	addURL         string
	addKey         string
	addModel       string
	addSmallModel  string
	addHaikuModel  string
	addSonnetModel string
	addOpusModel   string
	addEnv         []string
)

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addName, "name", "n", "", "Display name (defaults to the id)")
	addCmd.Flags().StringVarP(&addURL, "url", "u", "", "API base URL")
	addCmd.Flags().StringVarP(&addKey, "key", "k", "", "API key, prompted for when omitted")
	addCmd.Flags().StringVarP(&addModel, "model", "m", "", "Model name")
	addCmd.Flags().StringVar(&addSmallModel, "small-model", "", "Small fast model name")
	addCmd.Flags().StringVar(&addHaikuModel, "haiku", "", "Haiku tier model")
	addCmd.Flags().StringVar(&addSonnetModel, "sonnet", "", "Sonnet tier model")
	addCmd.Flags().StringVar(&addOpusModel, "opus", "", "Opus tier model")
	addCmd.Flags().StringArrayVar(&addEnv, "env", nil, "Extra environment entry KEY=VALUE, repeatable")
}

// isTerminal reports whether stdin is an interactive terminal
func isTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

var addCmd = &cobra.Command{
	Use:   "add [id]",
	Short: "Add a new configuration",
	Long: `Add a new configuration file settings.json.<id>.

Single model:
  ccdash add kimi --url https://api.moonshot.cn/anthropic --model kimi-k2-turbo

Per-tier models:
  ccdash add glm --url https://open.bigmodel.cn/api/anthropic --haiku glm-4.5-air --sonnet glm-4.6 --opus glm-4.6

The API key is prompted for when --key is omitted on a terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if addKey == "" && isTerminal() {
			key, err := prompt(cmd.InOrStdin(), cmd.OutOrStdout(), "API key: ")
			if err != nil {
				return err
			}
			addKey = key
		}

		req, err := buildCreateRequest(args[0])
		if err != nil {
			return err
		}

		summary, err := newManager().Create(req)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ Configuration added: %s", summary.ID)))
		fmt.Fprintf(out, "  File:     %s\n", summary.File)
		fmt.Fprintf(out, "  Endpoint: %s\n", utils.ExtractHost(req.Config.BaseURL))
		fmt.Fprintf(out, "  API key:  %s\n", utils.MaskAPIKey(req.Config.APIKey))
		fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("\n💡 Run 'ccdash switch %s' to activate it", summary.ID)))
		return nil
	},
}

// buildCreateRequest assembles a create request from the add flags. Any tier
// flag selects the per-tier layout.
func buildCreateRequest(id string) (models.CreateRequest, error) {
	name := addName
	if name == "" {
		name = id
	}

	cfg := models.ProviderConfig{
		BaseURL:   addURL,
		APIKey:    addKey,
		ModelType: models.ModelTypeSingle,
	}
	if addHaikuModel != "" || addSonnetModel != "" || addOpusModel != "" {
		cfg.ModelType = models.ModelTypeTriple
		cfg.HaikuModel = addHaikuModel
		cfg.SonnetModel = addSonnetModel
		cfg.OpusModel = addOpusModel
	} else {
		cfg.Model = addModel
		cfg.SmallModel = addSmallModel
	}

	if len(addEnv) > 0 {
		cfg.ExtraEnv = make(map[string]string, len(addEnv))
		for _, entry := range addEnv {
			key, value, ok := strings.Cut(entry, "=")
			if !ok || strings.TrimSpace(key) == "" {
				return models.CreateRequest{}, models.E(models.KindInvalidInput, "add", id,
					fmt.Errorf("invalid --env entry %q, expected KEY=VALUE", entry))
			}
			cfg.ExtraEnv[strings.TrimSpace(key)] = value
		}
	}

	return models.CreateRequest{ID: id, Name: name, Config: cfg}, nil
}

// prompt reads one trimmed line from in
func prompt(in io.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
