// Command palmd is the palm payment terminal. It drives the camera capture
// pipeline against a local palm registry and authorizes purchases and
// top-ups against the ledger service, through an operator console on stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"palmpay/capture"
	"palmpay/checkout"
	"palmpay/config"
	"palmpay/ledger"
	"palmpay/observability/logging"
	"palmpay/palm"
	"palmpay/storage"
)

func main() {
	configPath := flag.String("config", "palmd.toml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup("palmd", cfg.Environment, logging.Options{File: cfg.LogFile})

	db, err := storage.NewLevelDB(cfg.RegistryPath)
	if err != nil {
		log.Fatalf("open palm registry: %v", err)
	}
	defer db.Close()

	registry := palm.NewRegistry(palm.NewKVStore(db), slog.Default())
	client := ledger.NewClient(cfg.LedgerURL)
	if cfg.TokenPath != "" {
		if raw, err := os.ReadFile(cfg.TokenPath); err == nil {
			client.SetToken(strings.TrimSpace(string(raw)))
		}
	}
	authorizer := checkout.NewAuthorizer(client,
		checkout.WithTopupBounds(checkout.TopupBounds{Min: cfg.TopupMin, Max: cfg.TopupMax}),
		checkout.WithLogger(slog.Default()),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	term := &terminal{
		cfg:        cfg,
		registry:   registry,
		client:     client,
		authorizer: authorizer,
		cart:       checkout.NewCart(),
		out:        os.Stdout,
	}
	if err := term.run(ctx, bufio.NewScanner(os.Stdin)); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("terminal: %v", err)
	}
}

// terminal holds the operator console state between commands.
type terminal struct {
	cfg        *config.Config
	registry   *palm.Registry
	client     *ledger.Client
	authorizer *checkout.Authorizer
	cart       *checkout.Cart

	// palmCode is the credential from the most recent successful scan.
	palmCode string
	out      *os.File
}

func (t *terminal) printf(format string, args ...any) {
	fmt.Fprintf(t.out, format+"\n", args...)
}

func (t *terminal) run(ctx context.Context, in *bufio.Scanner) error {
	t.printf("palm terminal ready, type 'help' for commands")
	for {
		fmt.Fprint(t.out, "> ")
		if !in.Scan() {
			return in.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		fields := strings.Fields(in.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]
		switch cmd {
		case "help":
			t.printHelp()
		case "scan":
			t.scan(ctx, in, false)
		case "auto":
			t.scan(ctx, in, true)
		case "login":
			t.login(ctx, args)
		case "register":
			t.register(ctx, args)
		case "verify":
			t.verifyPalm(ctx)
		case "balance":
			t.balance(ctx)
		case "products":
			t.products(ctx)
		case "add":
			t.add(ctx, args)
		case "cart":
			t.showCart()
		case "checkout":
			t.checkout(ctx, args)
		case "topup":
			t.topup(ctx, args)
		case "history":
			t.history(ctx)
		case "quit", "exit":
			return nil
		default:
			t.printf("unknown command %q, type 'help'", cmd)
		}
	}
}

func (t *terminal) printHelp() {
	t.printf(`commands:
  scan                 quality-gated palm scan (press enter to capture, q to abort)
  auto                 countdown palm scan
  login <phone> <pw>   authenticate against the ledger
  register <phone> <pw> [first] [last]
  verify               bind the last scanned palm code to the profile
  balance              show the ledger balance
  products             list the store catalog
  add <product#> [qty] add a catalog item to the cart
  cart                 show the cart
  checkout [code]      pay for the cart with a palm code
  topup <amount>       top up the balance with the last scanned palm
  history              list past orders
  quit`)
}

// scan opens the camera, runs a capture session to completion and retains
// the resolved palm code as the terminal's active credential.
func (t *terminal) scan(ctx context.Context, in *bufio.Scanner, auto bool) {
	device := capture.NewDevice(&capture.FileProvider{Dir: t.cfg.FramesDir})
	if err := device.Request(ctx); err != nil {
		t.printf("camera: %s", device.Reason().Message())
		return
	}

	var policy capture.Policy
	if auto {
		policy = capture.NewTimedPolicy(t.cfg.CountdownTicks)
	} else {
		gated := capture.NewGatedPolicy(t.registry)
		gated.Threshold = t.cfg.GateThreshold
		policy = gated
	}
	session := capture.NewSession(device, policy,
		capture.WithProcessingPause(time.Duration(t.cfg.ProcessingPauseMS)*time.Millisecond),
		capture.WithLogger(slog.Default()),
	)

	interval := time.Second / time.Duration(t.cfg.FrameRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var outcome capture.Outcome
	var err error
	if auto {
		outcome, err = session.Run(ctx, ticker.C, nil)
	} else {
		outcome, err = t.gatedScan(ctx, in, session, ticker.C)
	}
	if err != nil {
		session.Close()
		if errors.Is(err, context.Canceled) {
			t.printf("scan aborted")
		} else {
			t.printf("scan failed: %v", err)
		}
		return
	}
	t.palmCode = outcome.Code
	slog.Info("scan complete",
		logging.MaskCredential("palm_code", outcome.Code),
		slog.Bool("recognized", outcome.Recognized))
	if outcome.Recognized {
		t.printf("palm recognized: %s", outcome.Code)
	} else {
		t.printf("new palm registered: %s", outcome.Code)
	}
}

// gatedScan keeps analysis ticking in the background while the operator
// drives the capture from the console. Capture attempts below the quality
// gate report progress and leave the session open.
func (t *terminal) gatedScan(ctx context.Context, in *bufio.Scanner, session *capture.Session, ticks <-chan time.Time) (capture.Outcome, error) {
	tickCtx, stopTicks := context.WithCancel(ctx)
	defer stopTicks()
	go func() {
		for {
			select {
			case <-tickCtx.Done():
				return
			case <-ticks:
				session.Tick()
			}
		}
	}()

	t.printf("hold your palm over the camera; enter captures, q aborts")
	for {
		select {
		case <-ctx.Done():
			return capture.Outcome{}, ctx.Err()
		default:
		}
		if !in.Scan() {
			return capture.Outcome{}, context.Canceled
		}
		if strings.TrimSpace(in.Text()) == "q" {
			return capture.Outcome{}, context.Canceled
		}
		outcome, err := session.Capture()
		if err != nil {
			var lq *capture.LowQualityError
			if errors.As(err, &lq) {
				t.printf("hold steady, progress %d%%", lq.Progress)
				continue
			}
			return capture.Outcome{}, err
		}
		return outcome, nil
	}
}

func (t *terminal) login(ctx context.Context, args []string) {
	if len(args) != 2 {
		t.printf("usage: login <phone> <password>")
		return
	}
	auth, err := t.client.Login(ctx, args[0], args[1])
	if err != nil {
		t.printf("login failed: %v", err)
		return
	}
	t.saveToken()
	t.printf("welcome %s, balance %s", auth.User.FirstName, auth.User.Amount)
}

// saveToken persists the session token so the next run starts signed in.
func (t *terminal) saveToken() {
	if t.cfg.TokenPath == "" {
		return
	}
	if err := os.WriteFile(t.cfg.TokenPath, []byte(t.client.Token()), 0o600); err != nil {
		slog.Warn("persist session token", slog.Any("error", err))
	}
}

func (t *terminal) register(ctx context.Context, args []string) {
	if len(args) < 2 {
		t.printf("usage: register <phone> <password> [first] [last]")
		return
	}
	params := ledger.RegisterParams{Phone: args[0], Password: args[1], PalmCode: t.palmCode}
	if len(args) > 2 {
		params.FirstName = args[2]
	}
	if len(args) > 3 {
		params.LastName = args[3]
	}
	auth, err := t.client.Register(ctx, params)
	if err != nil {
		t.printf("registration failed: %v", err)
		return
	}
	t.saveToken()
	t.printf("registered %s", auth.User.Phone)
}

func (t *terminal) verifyPalm(ctx context.Context) {
	if t.palmCode == "" {
		t.printf("scan a palm first")
		return
	}
	res, err := t.client.VerifyPalm(ctx, t.palmCode)
	if err != nil {
		t.printf("verification failed: %v", err)
		return
	}
	t.printf("%s", res.Message)
}

func (t *terminal) balance(ctx context.Context) {
	profile, err := t.client.Profile(ctx)
	if err != nil {
		t.printf("profile lookup failed: %v", err)
		return
	}
	t.printf("balance: %s", profile.Amount)
}

func (t *terminal) products(ctx context.Context) {
	products, err := t.client.Products(ctx)
	if err != nil {
		t.printf("catalog unavailable: %v", err)
		return
	}
	for i, p := range products {
		t.printf("%2d. %-24s %4d  %s", i+1, p.Name, p.Price, p.Category)
	}
}

func (t *terminal) add(ctx context.Context, args []string) {
	if len(args) < 1 {
		t.printf("usage: add <product#> [qty]")
		return
	}
	index, err := strconv.Atoi(args[0])
	if err != nil || index < 1 {
		t.printf("invalid product number %q", args[0])
		return
	}
	qty := 1
	if len(args) > 1 {
		if qty, err = strconv.Atoi(args[1]); err != nil || qty < 1 {
			t.printf("invalid quantity %q", args[1])
			return
		}
	}
	products, err := t.client.Products(ctx)
	if err != nil {
		t.printf("catalog unavailable: %v", err)
		return
	}
	if index > len(products) {
		t.printf("no such product")
		return
	}
	p := products[index-1]
	t.cart.Add(p.Name, p.Price, qty)
	t.printf("added %dx %s, cart total %d", qty, p.Name, t.cart.Total())
}

func (t *terminal) showCart() {
	if t.cart.Empty() {
		t.printf("cart is empty")
		return
	}
	for _, line := range t.cart.Lines() {
		t.printf("%2dx %-24s %d", line.Qty, line.Name, line.Price*int64(line.Qty))
	}
	t.printf("total: %d", t.cart.Total())
}

func (t *terminal) checkout(ctx context.Context, args []string) {
	code := t.palmCode
	method := checkout.MethodScan
	if len(args) > 0 {
		code = args[0]
		method = checkout.MethodManual
	}
	attempt, err := t.authorizer.Purchase(ctx, t.cart, method, code)
	if err != nil {
		t.printf("checkout rejected: %v", err)
		return
	}
	t.printf("%s", attempt.Outcome.Prompt())
}

func (t *terminal) topup(ctx context.Context, args []string) {
	if len(args) != 1 {
		t.printf("usage: topup <amount>")
		return
	}
	amount, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		t.printf("invalid amount %q", args[0])
		return
	}
	attempt, err := t.authorizer.TopUp(ctx, amount, checkout.MethodScan, t.palmCode)
	if err != nil {
		t.printf("top-up rejected: %v", err)
		return
	}
	t.printf("%s", attempt.Outcome.Prompt())
	if attempt.Outcome.Kind == checkout.OutcomeApproved {
		t.printf("new balance: %s", attempt.Outcome.NewBalance)
	}
}

func (t *terminal) history(ctx context.Context) {
	history, err := t.client.OrderHistory(ctx)
	if err != nil {
		t.printf("history unavailable: %v", err)
		return
	}
	if history.Total == 0 {
		t.printf("no orders yet")
		return
	}
	for _, order := range history.Transactions {
		t.printf("%s  %-8s %s", order.CreatedAt, order.Amount, order.PaymentStatus)
	}
}
