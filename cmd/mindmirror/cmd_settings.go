package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/mindmirror/internal/settings"
)

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsListCmd, settingsSetCmd)
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage AI provider settings",
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show current provider settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup := newApp()
		defer cleanup()

		s := a.settings.Current()
		fmt.Printf("provider     = %s\n", s.Provider)
		fmt.Printf("api_key      = %s\n", maskKey(s.APIKey))
		fmt.Printf("api_endpoint = %s\n", s.APIEndpoint)
		fmt.Printf("model_name   = %s\n", s.ModelName)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one provider setting",
	Long: `Change one provider setting and persist it.

Keys: provider (google|openai|custom), api_key, api_endpoint, model_name.
Changing the provider resets api_endpoint and model_name to that provider's
defaults; the api_key is kept.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup := newApp()
		defer cleanup()

		s := a.settings.Current()
		key, value := args[0], args[1]
		switch key {
		case "provider":
			p := settings.Provider(value)
			switch p {
			case settings.ProviderGoogle, settings.ProviderOpenAI, settings.ProviderCustom:
				s.ApplyProviderDefaults(p)
			default:
				return fmt.Errorf("unknown provider %q (google, openai, custom)", value)
			}
		case "api_key":
			s.APIKey = value
		case "api_endpoint":
			s.APIEndpoint = value
		case "model_name":
			s.ModelName = value
		default:
			return fmt.Errorf("unknown key %q (provider, api_key, api_endpoint, model_name)", key)
		}

		if err := a.ctrl.UpdateProviderSettings(s); err != nil {
			return err
		}
		fmt.Printf("%s updated\n", key)
		return nil
	},
}

func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
