package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/tirasundara/transfer-reconciler/internal/config"
	"github.com/tirasundara/transfer-reconciler/internal/credentials"
	"github.com/tirasundara/transfer-reconciler/internal/powens"
)

// runSetup creates a Powens user, stores its token in the credentials file and
// prints the webview URL where banks get linked
func runSetup(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	in := bufio.NewReader(os.Stdin)

	domainName, err := ask(in, os.Stderr, "Powens domain", cfg.Powens.Domain)
	if err != nil {
		return err
	}
	clientID, err := ask(in, os.Stderr, "Powens client id", cfg.Powens.ClientID)
	if err != nil {
		return err
	}
	secret, err := askSecret(in, os.Stderr, "Powens client secret")
	if err != nil {
		return err
	}

	client := powens.NewClient(domainName, logger)

	token, userID, err := client.CreateUser(ctx, clientID, secret)
	if err != nil {
		return err
	}

	creds := credentials.New(cfg.CredentialsPath, credentials.PowensCredentials{
		Domain:   domainName,
		ClientID: clientID,
		UserID:   userID,
		Token:    token,
	}, credentials.FireflyCredentials{})
	if err := creds.Save(); err != nil {
		return err
	}
	logger.Info("Credentials saved", "path", creds.Path(), "user_id", userID)

	code, err := client.GenerateWebviewCode(ctx, token)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Link your bank accounts at:\n%s\n", client.WebviewURL(clientID, code))
	return nil
}

// ask reads one line; an empty answer keeps fallback
func ask(in *bufio.Reader, out io.Writer, label, fallback string) (string, error) {
	if fallback != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, fallback)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}

	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading %s: %w", label, err)
	}

	answer := strings.TrimSpace(line)
	if answer == "" {
		answer = fallback
	}
	if answer == "" {
		return "", fmt.Errorf("%s is required", label)
	}
	return answer, nil
}

// askSecret reads without echo when stdin is a terminal
func askSecret(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return ask(in, out, label, "")
	}

	fmt.Fprintf(out, "%s: ", label)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", label, err)
	}
	if len(secret) == 0 {
		return "", fmt.Errorf("%s is required", label)
	}
	return string(secret), nil
}
