package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/codit04/cypherd/internal/infrastructure/ethsig"
)

type options struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "cypherd-cli",
		Short:         "cypherd CLI tool",
		Long:          `A command line interface for signing and settling wallet transfer approvals.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the cypherd API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(
		keygenCmd(),
		addressCmd(),
		signCmd(),
		approvalCmd(opts),
		txCmd(opts),
		walletCmd(opts),
	)

	return rootCmd
}

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new secp256k1 key pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, address, err := ethsig.GenerateKey()
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), map[string]string{"private_key": key, "address": address})
			return nil
		},
	}
}

func addressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "address <private-key>",
		Short: "Print the address of a private key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := ethsig.AddressFromPrivateKey(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), address)
			return nil
		},
	}
}

func signCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sign <private-key> <message|->",
		Short: "Produce a personal_sign signature (use - to read the message from stdin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := args[1]
			if message == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				message = strings.TrimSuffix(string(data), "\n")
			}

			signature, err := ethsig.Sign(args[0], message)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signature)
			return nil
		},
	}
}

func approvalCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approval",
		Short: "Approval operations",
	}

	var (
		from, to, eth, usd, memo string
		idempotencyKey           string
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a pending approval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"from_account_id": from, "to_address": to}
			if eth != "" {
				body["amount_eth"] = eth
			}
			if usd != "" {
				body["amount_usd"] = usd
			}
			if memo != "" {
				body["memo"] = memo
			}
			return opts.call(cmd, http.MethodPost, "/api/v1/approvals", body, idempotencyKey)
		},
	}
	createCmd.Flags().StringVar(&from, "from", "", "Sender account ID")
	createCmd.Flags().StringVar(&to, "to", "", "Recipient address")
	createCmd.Flags().StringVar(&eth, "eth", "", "Amount in ETH")
	createCmd.Flags().StringVar(&usd, "usd", "", "Amount in USD")
	createCmd.Flags().StringVar(&memo, "memo", "", "Optional memo")
	createCmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency-Key header")
	_ = createCmd.MarkFlagRequired("from")
	_ = createCmd.MarkFlagRequired("to")
	createCmd.MarkFlagsMutuallyExclusive("eth", "usd")
	createCmd.MarkFlagsOneRequired("eth", "usd")

	getCmd := &cobra.Command{
		Use:   "get <approval-id>",
		Short: "Show a pending approval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.call(cmd, http.MethodGet, "/api/v1/approvals/"+args[0], nil, "")
		},
	}

	var key, signature string
	executeCmd := &cobra.Command{
		Use:   "execute <approval-id>",
		Short: "Sign and execute a pending approval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if signature == "" {
				if key == "" {
					return fmt.Errorf("either --key or --signature is required")
				}
				message, err := opts.approvalMessage(cmd.Context(), id)
				if err != nil {
					return err
				}
				if signature, err = ethsig.Sign(key, message); err != nil {
					return err
				}
			}
			return opts.call(cmd, http.MethodPost, "/api/v1/approvals/"+id+"/execute", map[string]string{"signature": signature}, idempotencyKey)
		},
	}
	executeCmd.Flags().StringVar(&key, "key", "", "Private key used to sign the approval message")
	executeCmd.Flags().StringVar(&signature, "signature", "", "Precomputed signature")
	executeCmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency-Key header")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired approvals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.call(cmd, http.MethodPost, "/api/v1/approvals/sweep", nil, "")
		},
	}

	cmd.AddCommand(createCmd, getCmd, executeCmd, sweepCmd)
	return cmd
}

func txCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Transaction history",
	}

	getCmd := &cobra.Command{
		Use:   "get <transaction-id>",
		Short: "Show a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.call(cmd, http.MethodGet, "/api/v1/transactions/"+args[0], nil, "")
		},
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list <account-id>",
		Short: "List transactions of an account, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/accounts/%s/transactions?limit=%d", args[0], limit)
			return opts.call(cmd, http.MethodGet, path, nil, "")
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of transactions")

	cmd.AddCommand(getCmd, listCmd)
	return cmd
}

func walletCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Wallet operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "accounts <wallet-id>",
		Short: "List the accounts of a wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.call(cmd, http.MethodGet, "/api/v1/wallets/"+args[0]+"/accounts", nil, "")
		},
	})

	return cmd
}

func (o *options) httpClient() *http.Client {
	if o.client == nil {
		o.client = &http.Client{Timeout: o.timeout}
	}
	return o.client
}

func (o *options) do(ctx context.Context, method, path string, body any, idempotencyKey string) (int, []byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(o.baseURL, "/")+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := o.httpClient().Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}

// call performs a request and pretty prints the response body.
func (o *options) call(cmd *cobra.Command, method, path string, body any, idempotencyKey string) error {
	status, respBody, err := o.do(cmd.Context(), method, path, body, idempotencyKey)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, respBody, "", "  ") == nil {
		fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
	} else if len(respBody) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), string(respBody))
	}

	if status >= http.StatusBadRequest {
		return apiError(status, respBody)
	}
	return nil
}

func (o *options) approvalMessage(ctx context.Context, id string) (string, error) {
	status, body, err := o.do(ctx, http.MethodGet, "/api/v1/approvals/"+id, nil, "")
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", apiError(status, body)
	}

	message := gjson.GetBytes(body, "message")
	if !message.Exists() || message.String() == "" {
		return "", fmt.Errorf("approval %s has no message", id)
	}
	return message.String(), nil
}

func apiError(status int, body []byte) error {
	code := gjson.GetBytes(body, "error").String()
	message := gjson.GetBytes(body, "message").String()
	if code == "" {
		return fmt.Errorf("request failed (status %d): %s", status, truncate(string(body), 200))
	}
	return fmt.Errorf("request failed (status %d): %s: %s", status, code, message)
}

func printJSON(w io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "%v\n", v)
		return
	}
	fmt.Fprintln(w, string(data))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
