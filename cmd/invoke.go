package cmd

import (
	"encoding/json"
	"io"
	"os"

	"github.com/ClipFinance/juice-bot-relay/common/types"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newInstantiateCmd(opts *rootOptions) *cobra.Command {
	var (
		sender string
		msg    types.InstantiateMsg
	)

	cmd := &cobra.Command{
		Use:   "instantiate",
		Short: "Store the relay configuration; the sender becomes the owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				inv := types.Invocation{Sender: sender, BlockTime: uint64(a.now().Unix())}
				resp, err := a.relay.Instantiate(cmd.Context(), inv, msg)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), resp)
			})
		},
	}

	cmd.Flags().StringVar(&sender, "sender", "", "address of the caller, stored as owner")
	cmd.Flags().Uint64Var(&msg.RetryDelay, "retry-delay", 0, "minimum seconds between two dispatches of the same item")
	cmd.Flags().StringVar(&msg.JobID, "job-id", "", "relay job that carries every dispatch")
	cmd.Flags().StringVar(&msg.Creator, "creator", "", "creator forwarded in dispatch metadata")
	cmd.Flags().StringSliceVar(&msg.Signers, "signer", nil, "signer forwarded in dispatch metadata (repeatable)")
	_ = cmd.MarkFlagRequired("sender")
	_ = cmd.MarkFlagRequired("job-id")

	return cmd
}

func newExecuteCmd(opts *rootOptions) *cobra.Command {
	var (
		sender    string
		blockTime uint64
		file      string
	)

	cmd := &cobra.Command{
		Use:   "execute [message]",
		Short: "Execute one action, e.g. '{\"set_paloma\":{}}'",
		Long:  "Execute one action given as a JSON execute message, either as the argument or read from --file (\"-\" for stdin). Prints the response with its dispatch envelopes.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readMessage(cmd, args, file)
			if err != nil {
				return err
			}

			var msg types.ExecuteMsg
			if err := json.Unmarshal(raw, &msg); err != nil {
				return errors.Wrap(err, "parse execute message")
			}

			return withApp(cmd, opts, func(a *app) error {
				inv := types.Invocation{Sender: sender, BlockTime: blockTime}
				if !cmd.Flags().Changed("time") {
					inv.BlockTime = uint64(a.now().Unix())
				}

				resp, err := a.relay.Execute(cmd.Context(), inv, &msg)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), resp)
			})
		},
	}

	cmd.Flags().StringVar(&sender, "sender", "", "address of the caller")
	cmd.Flags().Uint64Var(&blockTime, "time", 0, "invocation time in unix seconds (default now)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the message from a file, \"-\" for stdin")
	_ = cmd.MarkFlagRequired("sender")

	return cmd
}

func newQueryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Read-only queries",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "job-id",
		Short: "Print the configured job id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				resp, err := a.relay.QueryJobID(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), resp)
			})
		},
	})

	return cmd
}

func readMessage(cmd *cobra.Command, args []string, file string) ([]byte, error) {
	switch {
	case len(args) == 1 && file != "":
		return nil, errors.New("pass the message as an argument or with --file, not both")
	case len(args) == 1:
		return []byte(args[0]), nil
	case file == "-":
		return io.ReadAll(cmd.InOrStdin())
	case file != "":
		data, err := os.ReadFile(file)
		return data, errors.Wrapf(err, "read %s", file)
	default:
		return nil, errors.New("an execute message is required")
	}
}

func writeJSON(out io.Writer, v interface{}) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
