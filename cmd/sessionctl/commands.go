package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-server-session/serversession"
)

const passwordEnvVar = "SESSIONCTL_PASSWORD"

func connectCmd(opts *options) *cobra.Command {
	var (
		password string
		data     string
	)
	cmd := &cobra.Command{
		Use:   "connect <username>",
		Short: "Open a session, closing any existing one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv(passwordEnvVar)
			}
			payload, err := parseData(data)
			if err != nil {
				return err
			}

			return withManager(cmd, opts, func(m *serversession.Manager) error {
				resp, err := m.Connect(cmd.Context(), args[0], password, payload)
				if err != nil {
					return err
				}
				if !resp.AccessAllowed {
					return errors.New("access denied")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "connected, session %s\n", resp.ID())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (default $"+passwordEnvVar+")")
	cmd.Flags().StringVarP(&data, "data", "d", "", "initial session data as a JSON object")
	return cmd
}

func disconnectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Close the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, opts, func(m *serversession.Manager) error {
				if !m.Connected() {
					fmt.Fprintln(cmd.OutOrStdout(), "not connected")
					return nil
				}
				if err := m.Disconnect(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "disconnected")
				return nil
			})
		},
	}
}

func statusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the persisted session without contacting the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, opts, func(m *serversession.Manager) error {
				out := cmd.OutOrStdout()
				if !m.Connected() {
					fmt.Fprintln(out, "not connected")
					return nil
				}
				fmt.Fprintf(out, "connected\nsession: %s\nkey:     %s\n", m.Session().ID(), m.StorageKey())
				if exp, ok := m.BearerExpiry(); ok {
					fmt.Fprintf(out, "bearer:  expires %s\n", exp.Local().Format(time.RFC3339))
				}
				return nil
			})
		},
	}
}

func getCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the session data as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, opts, func(m *serversession.Manager) error {
				data, err := m.GetSessionData(cmd.Context())
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(data)
			})
		},
	}
}

func setCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set <json>",
		Short: "Replace the session data; 'null' clears it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parseData(args[0])
			if err != nil {
				return err
			}
			return withManager(cmd, opts, func(m *serversession.Manager) error {
				if err := m.SetSessionData(cmd.Context(), payload); err != nil {
					return err
				}
				if !m.Connected() {
					return errors.New("not connected")
				}
				return nil
			})
		},
	}
}

func refreshCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch a fresh bearer for the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, opts, func(m *serversession.Manager) error {
				if err := m.Refresh(cmd.Context()); err != nil {
					return err
				}
				if !m.Connected() {
					return errors.New("not connected")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "refreshed")
				return nil
			})
		},
	}
}

func withManager(cmd *cobra.Command, opts *options, fn func(*serversession.Manager) error) error {
	m, closeStore, err := newManager(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(m)
}

// parseData decodes a JSON object. Empty input and "null" both yield nil.
func parseData(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(s), &data); err != nil {
		return nil, fmt.Errorf("invalid JSON data: %w", err)
	}
	return data, nil
}
