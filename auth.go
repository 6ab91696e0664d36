package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/minios-linux/datrans/i18n"
	"github.com/minios-linux/datrans/provider"
	"github.com/minios-linux/datrans/settings"
)

// ---------------------------------------------------------------------------
// auth (API key storage)
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: i18n.T("Manage provider API keys"),
		Long: `Manage the API keys of the translation providers.

API key providers:
  openai         OpenAI
  groq           Groq Cloud (free tier available)
  google         Google AI Studio (Gemini API key)
  anthropic      Anthropic
  custom-openai  Custom OpenAI-compatible endpoint (URL + optional key)

No auth required:
  google-web     Google Translate web endpoint
  ollama         Local Ollama server
  echo           Returns texts unchanged

Examples:
  datrans auth login --provider openai     Store an OpenAI API key
  datrans auth logout --provider openai    Remove the OpenAI API key
  datrans auth logout                      Remove all credentials
  datrans auth list                        Show all stored credentials`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthListCmd(),
	)

	return cmd
}

// keyProviders lists the providers whose credentials are stored.
func keyProviders() []string {
	defs := provider.DefaultConfigs()
	var ids []string
	for _, id := range provider.IDs() {
		if defs[id].NeedsKey || id == provider.IDCustomOpenAI {
			ids = append(ids, id)
		}
	}
	return ids
}

func isKeyProvider(id string) bool {
	for _, p := range keyProviders() {
		if p == id {
			return true
		}
	}
	return false
}

var keyHelpURLs = map[string]string{
	provider.IDOpenAI:    "https://platform.openai.com/api-keys",
	provider.IDGroq:      "https://console.groq.com/keys",
	provider.IDGoogle:    "https://aistudio.google.com/apikey",
	provider.IDAnthropic: "https://console.anthropic.com/settings/keys",
}

func newAuthLoginCmd() *cobra.Command {
	var providerID string

	cmd := &cobra.Command{
		Use:   "login",
		Short: i18n.T("Store an API key"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isKeyProvider(providerID) {
				return fmt.Errorf("unknown or keyless provider '%s'; choose one of: %s",
					providerID, strings.Join(keyProviders(), ", "))
			}
			in := bufio.NewScanner(cmd.InOrStdin())
			if providerID == provider.IDCustomOpenAI {
				return authLoginCustomOpenAI(in, cmd.ErrOrStderr())
			}
			return authLoginAPIKey(providerID, in, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&providerID, "provider", "", "Provider to store a key for")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.RegisterFlagCompletionFunc("provider", completeKeyProviders)

	return cmd
}

func completeKeyProviders(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	defs := provider.DefaultConfigs()
	var out []string
	for _, id := range keyProviders() {
		out = append(out, id+"\t"+defs[id].Name)
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func authLoginAPIKey(providerID string, in *bufio.Scanner, w io.Writer) error {
	name := provider.DefaultConfigs()[providerID].Name

	fmt.Fprintf(w, "\n%s%s API Key Setup%s\n", colorBlue, name, colorReset)
	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintln(w)
	if url := keyHelpURLs[providerID]; url != "" {
		fmt.Fprintf(w, "  Get your API key from: %s%s%s\n\n", colorGreen, url, colorReset)
	}

	existing := settings.GetAPIKey(providerID)
	if existing != "" {
		fmt.Fprintf(w, "  Current key: %s%s%s\n", colorYellow, settings.MaskKey(existing), colorReset)
		fmt.Fprintf(w, "  Enter new key to replace, or press Enter to keep: ")
	} else {
		fmt.Fprintf(w, "  Enter API key: ")
	}

	key := readLine(in)
	if key == "" {
		if existing != "" {
			logInfo(i18n.T("Keeping existing key"))
			return nil
		}
		return fmt.Errorf("no API key provided")
	}

	if err := settings.SetAPIKey(providerID, key); err != nil {
		return fmt.Errorf("saving API key: %w", err)
	}
	logSuccess(i18n.T("%s API key saved!"), name)
	return nil
}

func authLoginCustomOpenAI(in *bufio.Scanner, w io.Writer) error {
	fmt.Fprintf(w, "\n%sCustom OpenAI-Compatible Endpoint%s\n", colorBlue, colorReset)
	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintln(w)

	current := settings.Get(provider.IDCustomOpenAI)
	if current != nil && current.BaseURL != "" {
		fmt.Fprintf(w, "  Current endpoint: %s\n", current.BaseURL)
	}
	fmt.Fprintf(w, "  Endpoint URL (e.g. http://localhost:8080/v1): ")
	baseURL := readLine(in)
	if baseURL == "" && current != nil {
		baseURL = current.BaseURL
	}
	if baseURL == "" {
		return fmt.Errorf("no endpoint URL provided")
	}

	fmt.Fprintf(w, "  API key (optional, press Enter to skip): ")
	key := readLine(in)
	if key == "" && current != nil {
		key = current.Key
	}

	if err := settings.SetAPIKeyWithBaseURL(provider.IDCustomOpenAI, key, baseURL); err != nil {
		return fmt.Errorf("saving endpoint: %w", err)
	}
	logSuccess(i18n.T("Custom endpoint saved: %s"), baseURL)
	return nil
}

func readLine(in *bufio.Scanner) string {
	if !in.Scan() {
		return ""
	}
	return strings.TrimSpace(in.Text())
}

func newAuthLogoutCmd() *cobra.Command {
	var providerID string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: i18n.T("Remove stored credentials"),
		Long: `Remove stored credentials for one or all providers.

If --provider is not specified, credentials for ALL providers are removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if providerID == "" {
				if err := settings.RemoveAll(); err != nil {
					return err
				}
				logSuccess(i18n.T("All stored credentials removed"))
				return nil
			}
			if !isKeyProvider(providerID) {
				return fmt.Errorf("unknown provider '%s'. Run 'datrans auth list' to see providers", providerID)
			}
			if err := settings.Remove(providerID); err != nil {
				return fmt.Errorf("removing %s credentials: %w", providerID, err)
			}
			logSuccess(i18n.T("%s credentials removed"), providerID)
			return nil
		},
	}

	cmd.Flags().StringVar(&providerID, "provider", "", "Provider to logout (default: all)")
	_ = cmd.RegisterFlagCompletionFunc("provider", completeKeyProviders)

	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   i18n.T("Show stored credentials and status"),
		Run: func(cmd *cobra.Command, args []string) {
			printCredentials(cmd.ErrOrStderr())
		},
	}
}

func printCredentials(w io.Writer) {
	fmt.Fprintf(w, "\n%sStored Credentials%s (%s)\n", colorBlue, colorReset, settings.FilePath())
	fmt.Fprintln(w, strings.Repeat("─", 60))

	for _, id := range keyProviders() {
		entry := settings.Get(id)
		switch {
		case entry != nil && entry.Key != "":
			status := fmt.Sprintf("%sconfigured%s (key: %s)", colorGreen, colorReset, settings.MaskKey(entry.Key))
			if entry.BaseURL != "" {
				status += fmt.Sprintf("\n  %14s endpoint: %s", "", entry.BaseURL)
			}
			fmt.Fprintf(w, "  %-14s %s\n", id, status)
		case entry != nil && entry.BaseURL != "":
			fmt.Fprintf(w, "  %-14s %sconfigured%s (no key)\n  %14s endpoint: %s\n", id, colorGreen, colorReset, "", entry.BaseURL)
		default:
			fmt.Fprintf(w, "  %-14s %snot configured%s\n", id, colorRed, colorReset)
		}
	}

	fmt.Fprintf(w, "\n  %sEnvironment Variables%s\n", colorYellow, colorReset)
	if envKey := os.Getenv(settings.EnvAPIKey); envKey != "" {
		fmt.Fprintf(w, "  %s: %s%s%s (overrides stored keys)\n", settings.EnvAPIKey, colorGreen, settings.MaskKey(envKey), colorReset)
	} else {
		fmt.Fprintf(w, "  %s: %snot set%s\n", settings.EnvAPIKey, colorRed, colorReset)
	}
	fmt.Fprintln(w)
}
