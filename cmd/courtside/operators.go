package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"
	"gopkg.in/yaml.v3"

	"pkt.systems/courtside/internal/appconfig"
	"pkt.systems/courtside/internal/auth"
	"pkt.systems/courtside/schema"
	"pkt.systems/pslog"
)

const totpIssuer = "courtside"

func newOperatorsCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "operators",
		Short: "Manage SSH console operators",
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	cmd.AddCommand(newOperatorsListCmd(&cfgPath))
	cmd.AddCommand(newOperatorsEnrollCmd())
	cmd.AddCommand(newOperatorsVerifyCmd(&cfgPath))

	return cmd
}

func newOperatorsListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured operators",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(*cfgPath)
			if err != nil {
				return err
			}
			store, err := auth.NewStoreWithLogger(cfg.Operators, pslog.Ctx(cmd.Context()))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range store.Operators() {
				totp := "no"
				if store.RequiresTOTP(id) {
					totp = "yes"
				}
				_, _ = fmt.Fprintf(out, "%s\ttotp=%s\n", id, totp)
			}
			return nil
		},
	}
}

func newOperatorsEnrollCmd() *cobra.Command {
	var pubKeys []string
	var noTOTP bool
	cmd := &cobra.Command{
		Use:   "enroll <name>",
		Short: "Generate an operator entry to paste into the config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, url, err := enrollOperator(args[0], pubKeys, !noTOTP)
			if err != nil {
				return err
			}
			return printEnrollment(cmd.OutOrStdout(), entry, url)
		},
	}
	cmd.Flags().StringArrayVar(&pubKeys, "pubkey", nil, "authorized_keys line allowed to log in (repeatable)")
	cmd.Flags().BoolVar(&noTOTP, "no-totp", false, "skip the second factor")
	return cmd
}

func newOperatorsVerifyCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <name> <code>",
		Short: "Check a TOTP code against the configured secret",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(*cfgPath)
			if err != nil {
				return err
			}
			store, err := auth.NewStoreWithLogger(cfg.Operators, pslog.Ctx(cmd.Context()))
			if err != nil {
				return err
			}
			if err := store.ValidateTOTP(schema.OperatorID(args[0]), args[1]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "code accepted for %s\n", args[0])
			return nil
		},
	}
}

// enrollOperator builds a config entry for name. The returned URL is the
// otpauth provisioning URL, empty when withTOTP is false.
func enrollOperator(name string, pubKeys []string, withTOTP bool) (appconfig.OperatorConfig, string, error) {
	id := schema.OperatorID(name)
	if err := schema.ValidateOperatorID(id); err != nil {
		return appconfig.OperatorConfig{}, "", fmt.Errorf("invalid operator name %q: %w", name, err)
	}
	if len(pubKeys) == 0 {
		return appconfig.OperatorConfig{}, "", fmt.Errorf("at least one --pubkey is required")
	}
	entry := appconfig.OperatorConfig{Name: name}
	for _, raw := range pubKeys {
		key, comment, _, _, err := ssh.ParseAuthorizedKey([]byte(strings.TrimSpace(raw)))
		if err != nil {
			return appconfig.OperatorConfig{}, "", fmt.Errorf("parse pubkey: %w", err)
		}
		line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(key)))
		if comment != "" {
			line += " " + comment
		}
		entry.LoginPubKeys = append(entry.LoginPubKeys, line)
	}
	if !withTOTP {
		return entry, "", nil
	}
	key, err := auth.GenerateTOTP(id, totpIssuer)
	if err != nil {
		return appconfig.OperatorConfig{}, "", err
	}
	entry.TOTPSecret = key.Secret()
	return entry, key.URL(), nil
}

func printEnrollment(w io.Writer, entry appconfig.OperatorConfig, url string) error {
	data, err := yaml.Marshal(map[string][]appconfig.OperatorConfig{"operators": {entry}})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "# add to the operators list of your config\n%s", data)
	if url != "" {
		_, _ = fmt.Fprintf(w, "otpauth_url: %s\n", url)
		_, _ = fmt.Fprintln(w, "totp_qr:")
		qrterminal.GenerateHalfBlock(url, qrterminal.L, w)
	}
	return nil
}
