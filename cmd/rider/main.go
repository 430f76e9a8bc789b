// rider is the command-line seat reservation client. It keeps the last
// seat view of every run it has looked at in a local cache and books
// seats against the server with the credential saved by "rider login".
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"busseat/internal/reservation"
	"busseat/internal/shared/config"
	"busseat/pkg/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const usage = `Usage: rider <command> [flags]

Commands:
  register <username>            create a rider account and log in
  login <username>               log in and save the credential
  logout                         forget the saved credential
  runs                           list scheduled runs
  seats <run-id>                 show the seat map (cached when possible)
  resync <run-id>                refetch the seat map from the server
  book <run-id> <seat-number>    book a seat

Flags:
`

type options struct {
	baseURL      string
	timeout      time.Duration
	cacheDir     string
	passwordFile string
	operator     bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	_ = godotenv.Load()
	defaults := config.Load().Client

	var opts options
	flagSet := pflag.NewFlagSet("rider", pflag.ContinueOnError)
	flagSet.StringVar(&opts.baseURL, "url", defaults.BaseURL, "server base URL")
	flagSet.DurationVar(&opts.timeout, "timeout", defaults.RequestTimeout, "per-request timeout")
	flagSet.StringVar(&opts.cacheDir, "cache-dir", defaults.CacheDir, "directory for the seat cache and session")
	flagSet.StringVar(&opts.passwordFile, "password-file", "", "read the password from this file instead of prompting")
	flagSet.BoolVar(&opts.operator, "operator", false, "register as an operator")
	flagSet.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		flagSet.Usage()
		return errors.New("no command given")
	}

	// Keep log lines off stdout; the seat map goes there
	logger.SetDefault(logger.NewWithWriter(os.Stderr, "warn"))

	cli := newCLI(opts, out)
	ctx := context.Background()

	command, params := rest[0], rest[1:]
	switch command {
	case "register":
		return cli.register(ctx, params)
	case "login":
		return cli.login(ctx, params)
	case "logout":
		return clearSession(opts.cacheDir)
	case "runs":
		return cli.runs(ctx)
	case "seats":
		return cli.seats(ctx, params, false)
	case "resync":
		return cli.seats(ctx, params, true)
	case "book":
		return cli.book(ctx, params)
	default:
		flagSet.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

type cli struct {
	opts      options
	out       io.Writer
	transport *reservation.HTTPTransport
	client    *reservation.Client
}

func newCLI(opts options, out io.Writer) *cli {
	transport := reservation.NewHTTPTransport(opts.baseURL, opts.timeout)
	store := reservation.NewFileCacheStore(filepath.Join(opts.cacheDir, "seats"))
	return &cli{
		opts:      opts,
		out:       out,
		transport: transport,
		client:    reservation.NewClient(transport, store),
	}
}

func (c *cli) register(ctx context.Context, params []string) error {
	if len(params) != 1 {
		return errors.New("usage: rider register <username>")
	}
	password, err := readPassword(c.opts.passwordFile)
	if err != nil {
		return err
	}

	role := "user"
	if c.opts.operator {
		role = "operator"
	}
	cred, err := c.transport.Register(ctx, params[0], password, role)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return c.saveCredential(cred)
}

func (c *cli) login(ctx context.Context, params []string) error {
	if len(params) != 1 {
		return errors.New("usage: rider login <username>")
	}
	password, err := readPassword(c.opts.passwordFile)
	if err != nil {
		return err
	}

	cred, err := c.transport.Login(ctx, params[0], password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return c.saveCredential(cred)
}

func (c *cli) saveCredential(cred reservation.Credential) error {
	s := session{BaseURL: c.opts.baseURL, Username: cred.Username, Role: cred.Role, Token: cred.Token}
	if err := saveSession(c.opts.cacheDir, s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	fmt.Fprintf(c.out, "Logged in as %s (%s)\n", cred.Username, cred.Role)
	return nil
}

func (c *cli) runs(ctx context.Context) error {
	runs, err := c.transport.ListRuns(ctx)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	renderRuns(c.out, runs)
	return nil
}

func (c *cli) seats(ctx context.Context, params []string, refresh bool) error {
	if len(params) != 1 {
		return errors.New("usage: rider seats <run-id>")
	}
	runID, err := uuid.Parse(params[0])
	if err != nil {
		return fmt.Errorf("invalid run id %q", params[0])
	}

	if refresh {
		_, err = c.client.Resync(ctx, runID)
	} else {
		_, err = c.client.LoadSeats(ctx, reservation.Run{ID: runID})
	}
	if err != nil {
		return fmt.Errorf("load seats: %w", err)
	}
	return c.showBoard(runID)
}

func (c *cli) book(ctx context.Context, params []string) error {
	if len(params) != 2 {
		return errors.New("usage: rider book <run-id> <seat-number>")
	}
	runID, err := uuid.Parse(params[0])
	if err != nil {
		return fmt.Errorf("invalid run id %q", params[0])
	}
	seatNumber, err := strconv.Atoi(params[1])
	if err != nil || seatNumber < 1 {
		return fmt.Errorf("invalid seat number %q", params[1])
	}

	s, err := loadSession(c.opts.cacheDir)
	if err != nil {
		return err
	}
	cred := s.credential()

	run := reservation.Run{ID: runID}
	if _, err := c.client.LoadSeats(ctx, run); err != nil {
		return fmt.Errorf("load seats: %w", err)
	}
	if err := c.client.SelectSeat(runID, seatNumber-1); err != nil {
		_ = c.showBoard(runID)
		return err
	}

	booking, err := c.client.ConfirmBooking(ctx, run, seatNumber-1, cred)
	_ = c.showBoard(runID)
	switch {
	case err == nil:
		fmt.Fprintf(c.out, "Booked seat %d on %s -> %s (booking %s)\n",
			booking.SeatNumber, booking.StartingPoint, booking.Destination, booking.ID)
		return nil
	case errors.Is(err, reservation.ErrUnauthenticated):
		return errors.New("not logged in; run \"rider login <username>\" first")
	case errors.Is(err, reservation.ErrSeatUnavailable):
		return fmt.Errorf("seat %d was taken before your booking reached the server", seatNumber)
	case errors.Is(err, reservation.ErrTransport):
		return fmt.Errorf("booking outcome unknown, check the seat map above: %w", err)
	default:
		return err
	}
}

func (c *cli) showBoard(runID uuid.UUID) error {
	board, err := c.client.Board(runID)
	if err != nil {
		return err
	}
	renderBoard(c.out, board)
	return nil
}

// readPassword reads from file when given, otherwise prompts with echo off
func readPassword(passwordFile string) (string, error) {
	if passwordFile != "" && passwordFile != "-" {
		data, err := os.ReadFile(passwordFile)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", passwordFile, err)
		}
		password := strings.TrimRight(string(data), "\r\n")
		if password == "" {
			return "", fmt.Errorf("%s is empty", passwordFile)
		}
		return password, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal available for the password prompt (use --password-file)")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(password), nil
}
