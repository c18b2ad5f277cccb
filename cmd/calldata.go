package cmd

import (
	"fmt"
	"strings"

	"github.com/ClipFinance/juice-bot-relay/calldata"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <payload>",
		Short: "Decode hex call data produced by the relay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.TrimSpace(args[0])
			if !strings.HasPrefix(input, "0x") {
				input = "0x" + input
			}
			payload, err := hexutil.Decode(input)
			if err != nil {
				return errors.Wrap(err, "invalid payload")
			}

			registry, err := calldata.NewDefaultRegistry()
			if err != nil {
				return err
			}
			name, values, err := registry.Decode(payload)
			if err != nil {
				return err
			}

			rendered := make([]interface{}, len(values))
			for i, v := range values {
				rendered[i] = render(v)
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"function": name,
				"args":     rendered,
			})
		},
	}
}

func newSelectorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selectors",
		Short: "List destination functions with their signatures and selectors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := calldata.NewDefaultRegistry()
			if err != nil {
				return err
			}

			for _, name := range registry.Names() {
				signature, err := registry.Signature(name)
				if err != nil {
					return err
				}
				selector, err := registry.Selector(name)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", hexutil.Encode(selector), signature)
			}
			return nil
		},
	}
}

// render turns a value tree into plain JSON values. Integers are decimal strings.
func render(v calldata.Value) interface{} {
	switch v := v.(type) {
	case calldata.Address:
		return string(v)
	case calldata.Uint:
		return v.String()
	case calldata.List:
		return renderAll(v)
	case calldata.Tuple:
		return renderAll(v)
	}
	return nil
}

func renderAll(values []calldata.Value) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = render(v)
	}
	return out
}
