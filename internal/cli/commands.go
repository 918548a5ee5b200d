package cli

import (
	"fmt"
	"maps"

	"github.com/spf13/cobra"

	kbopts "github.com/goliatone/go-kbopts"
	"github.com/goliatone/go-kbopts/internal/hydrate"
)

func newSerializeCmd(flags *rootFlags) *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "serialize",
		Short: "Print the registry as a document",
		Args:  cobra.NoArgs,
		RunE: flags.observed(func(cmd *cobra.Command, args []string) error {
			registry, err := flags.registry()
			if err != nil {
				return err
			}

			size, err := registry.Serialize(nil)
			if err != nil {
				return err
			}
			buf := make([]byte, size)
			size, err = registry.Serialize(buf)
			if err != nil {
				return err
			}

			doc := buf[:size-1]
			if verify {
				if err := verifyDocument(registry, doc); err != nil {
					return err
				}
			}
			if _, err := cmd.OutOrStdout().Write(doc); err != nil {
				return err
			}
			if len(doc) > 0 && doc[len(doc)-1] != '\n' {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "Decode the document and check it holds exactly the registry entries")
	return cmd
}

// verifyDocument decodes doc and compares it with the registry contents.
func verifyDocument(registry *kbopts.Options, doc []byte) error {
	want := registry.Snapshot()
	decoder := hydrate.NewDecoder(hydrate.WithPostHook(func(ctx hydrate.Context, got hydrate.Snapshot) error {
		for scope := range got {
			if _, ok := want[scope]; !ok {
				return fmt.Errorf("unexpected scope %q", scope)
			}
		}
		for scope, pairs := range want {
			if !maps.Equal(pairs, got[scope]) {
				return fmt.Errorf("scope %s: document has %d entries, registry has %d", scope, len(got[scope]), len(pairs))
			}
		}
		return nil
	}))
	if _, err := decoder.Decode(hydrate.Context{Source: "serialize", Format: registry.Format()}, doc); err != nil {
		return fmt.Errorf("document verification failed: %w", err)
	}
	return nil
}

func newLookupCmd(flags *rootFlags) *cobra.Command {
	var trace bool
	cmd := &cobra.Command{
		Use:   "lookup SCOPE KEY",
		Short: "Print the value of one option",
		Long: `Print the value stored for KEY in SCOPE. SCOPE is keyboard or
environment, or "effective" to resolve across scopes with keyboard
values overriding environment values.`,
		Args: cobra.ExactArgs(2),
		RunE: flags.observed(func(cmd *cobra.Command, args []string) error {
			registry, err := flags.registry()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if args[0] == "effective" {
				value, tr, err := registry.ResolveWithTrace(args[1])
				if trace {
					payload, jerr := tr.ToJSON()
					if jerr != nil {
						return jerr
					}
					fmt.Fprintln(out, string(payload))
					return err
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(out, value)
				return nil
			}

			scope := kbopts.ParseScope(args[0])
			if !scope.Valid() {
				return fmt.Errorf("unknown scope %q", args[0])
			}
			value, err := registry.Lookup(scope, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, value)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&trace, "trace", false, "Print per-scope provenance as JSON (effective lookups only)")
	return cmd
}

func newEvalCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "eval EXPR",
		Short: "Evaluate a rule against the registry",
		Long: `Evaluate EXPR with the selected rule engine. Scopes are exposed as
maps, for example keyboard.layout == "dvorak".`,
		Args: cobra.ExactArgs(1),
		RunE: flags.observed(func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config()
			if err != nil {
				return err
			}
			evaluator, err := cfg.evaluator()
			if err != nil {
				return err
			}
			registry, err := flags.registry(kbopts.WithEvaluator(evaluator))
			if err != nil {
				return err
			}
			result, err := registry.Evaluate(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		}),
	}
}
