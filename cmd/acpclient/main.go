// acpclient is a CLI tool for testing ACP checkout flows against the proxy.
// Each command performs a single operation, making it composable for scripts.
//
// Commands:
//
//	acpclient create -proxy URL -sku SKU [-qty N]
//	acpclient get -proxy URL -id <session-id>
//	acpclient update -proxy URL -id <session-id> [-buyer] [-shipping] [-fulfillment ID] [-sku SKU -qty N]
//	acpclient complete -proxy URL -id <session-id> -provider NAME [-token TOKEN]
//	acpclient cancel -proxy URL -id <session-id> [-reason CODE]
//
// Examples:
//
//	ID=$(acpclient create -proxy http://localhost:8080 -sku SHIRT-1 -q)
//	acpclient update -proxy http://localhost:8080 -id $ID -buyer -shipping
//	acpclient update -proxy http://localhost:8080 -id $ID -fulfillment express
//	acpclient complete -proxy http://localhost:8080 -id $ID -provider stripe
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"acp-proxy/internal/acp"
)

var client = &http.Client{Timeout: 30 * time.Second}

// Global flags (apply to all commands)
var (
	proxyURL string
	apiToken string
	quiet    bool
	noColor  bool
	verbose  bool
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorBlue, colorCyan, colorGray, colorBold = "", "", "", ""
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "create":
		runCreate(args)
	case "get":
		runGet(args)
	case "update":
		runUpdate(args)
	case "complete":
		runComplete(args)
	case "cancel":
		runCancel(args)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `acpclient - ACP checkout flow test tool

Usage:
  acpclient <command> [options]

Commands:
  create    Create a checkout session with items
  get       Get current session state
  update    Update session (items, buyer, shipping address, fulfillment option)
  complete  Complete session with payment data
  cancel    Cancel session

Examples:
  # Create session and capture ID
  ID=$(acpclient create -proxy http://localhost:8080 -sku SHIRT-1 -q)

  # Add buyer info and shipping address
  acpclient update -proxy http://localhost:8080 -id "$ID" -buyer -shipping

  # Select shipping method
  acpclient update -proxy http://localhost:8080 -id "$ID" -fulfillment express

  # Complete with payment
  acpclient complete -proxy http://localhost:8080 -id "$ID" -provider stripe

The bearer token is read from -token or ACP_API_TOKEN.
Run 'acpclient <command> -h' for command-specific options.
`)
}

// commonFlags registers the flags every command accepts.
func commonFlags(fs *flag.FlagSet) {
	fs.StringVar(&proxyURL, "proxy", "http://localhost:8080", "ACP proxy base URL")
	fs.StringVar(&apiToken, "token", os.Getenv("ACP_API_TOKEN"), "Bearer token for the proxy")
	fs.BoolVar(&quiet, "q", false, "Quiet mode - only output the essential value")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&verbose, "v", false, "Verbose - show full request/response")
}

func parseFlags(fs *flag.FlagSet, args []string) {
	fs.Parse(args)
	if noColor {
		disableColors()
	}
}

func sessionPath(id string, suffix string) string {
	return "/checkout_sessions/" + url.PathEscape(id) + suffix
}

// =============================================================================
// CREATE COMMAND
// =============================================================================

func runCreate(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	commonFlags(fs)
	var sku string
	var quantity int
	var addBuyer, addShipping bool
	fs.StringVar(&sku, "sku", "", "Item SKU (required)")
	fs.IntVar(&quantity, "qty", 1, "Quantity")
	fs.BoolVar(&addBuyer, "buyer", false, "Add test buyer info")
	fs.BoolVar(&addShipping, "shipping", false, "Add test shipping address")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: acpclient create -sku SKU [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	parseFlags(fs, args)

	if sku == "" {
		fs.Usage()
		os.Exit(1)
	}

	req := acp.CreateRequest{
		Items: []acp.Item{{SKU: sku, Quantity: &quantity}},
	}
	if addBuyer {
		req.Buyer = testBuyer("test@example.com")
	}
	if addShipping {
		req.FulfillmentDetails = &acp.FulfillmentDetails{ShippingAddress: testAddress()}
	}

	var session acp.Session
	if err := doRequest(http.MethodPost, "/checkout_sessions", req, &session); err != nil {
		fatal("Failed to create session: %v", err)
	}

	if quiet {
		fmt.Println(session.ID)
		return
	}
	printSuccess("Session created")
	fmt.Printf("  ID: %s%s%s\n", colorCyan, session.ID, colorReset)
	printSummary(&session)
}

// =============================================================================
// GET COMMAND
// =============================================================================

func runGet(args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	commonFlags(fs)
	var sessionID string
	fs.StringVar(&sessionID, "id", "", "Session ID (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: acpclient get -id <session-id> [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	parseFlags(fs, args)

	if sessionID == "" {
		fs.Usage()
		os.Exit(1)
	}

	var session acp.Session
	if err := doRequest(http.MethodGet, sessionPath(sessionID, ""), nil, &session); err != nil {
		fatal("Failed to get session: %v", err)
	}

	if quiet {
		fmt.Println(session.Status)
		return
	}
	printSuccess("Session retrieved")
	printSummary(&session)

	if len(session.FulfillmentOptions) > 0 {
		fmt.Printf("  %sFulfillment options:%s\n", colorYellow, colorReset)
		for _, opt := range session.FulfillmentOptions {
			fmt.Printf("    - %s: %s (%s)\n", opt.ID, opt.Name, formatMoney(opt.Price, session.Currency))
		}
	}
}

// =============================================================================
// UPDATE COMMAND
// =============================================================================

func runUpdate(args []string) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	commonFlags(fs)

	var sessionID string
	fs.StringVar(&sessionID, "id", "", "Session ID (required)")

	// Update options - each triggers a specific update
	var addBuyer, addShipping bool
	var fulfillmentID, email, sku string
	var quantity int

	fs.BoolVar(&addBuyer, "buyer", false, "Add test buyer info")
	fs.BoolVar(&addShipping, "shipping", false, "Add test shipping address")
	fs.StringVar(&email, "email", "test@example.com", "Buyer email (used with -buyer)")
	fs.StringVar(&fulfillmentID, "fulfillment", "", "Select fulfillment option by ID")
	fs.StringVar(&sku, "sku", "", "Replace items with this SKU")
	fs.IntVar(&quantity, "qty", 1, "Quantity (used with -sku)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: acpclient update -id <session-id> [options]\n\n")
		fmt.Fprintf(os.Stderr, "At least one update option is required.\n")
		fmt.Fprintf(os.Stderr, "Omitted parts of the session keep their current values.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	parseFlags(fs, args)

	if sessionID == "" {
		fs.Usage()
		os.Exit(1)
	}

	hasUpdate := addBuyer || addShipping || fulfillmentID != "" || sku != ""
	if !hasUpdate {
		fmt.Fprintf(os.Stderr, "Error: at least one update option required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	var req acp.UpdateRequest
	var updates []string
	if sku != "" {
		req.Items = []acp.Item{{SKU: sku, Quantity: &quantity}}
		updates = append(updates, fmt.Sprintf("items: %s x%d", sku, quantity))
	}
	if addBuyer {
		req.Buyer = testBuyer(email)
		updates = append(updates, "buyer")
	}
	if addShipping || fulfillmentID != "" {
		req.FulfillmentDetails = &acp.FulfillmentDetails{}
		if addShipping {
			req.FulfillmentDetails.ShippingAddress = testAddress()
			updates = append(updates, "shipping address")
		}
		if fulfillmentID != "" {
			req.FulfillmentDetails.SelectedOptionID = acp.String(fulfillmentID)
			updates = append(updates, "fulfillment: "+fulfillmentID)
		}
	}

	var session acp.Session
	if err := doRequest(http.MethodPost, sessionPath(sessionID, ""), req, &session); err != nil {
		fatal("Failed to update session: %v", err)
	}

	if quiet {
		fmt.Println(session.Status)
		return
	}
	printSuccess("Session updated")
	printSummary(&session)
	fmt.Printf("  Updated: %s\n", strings.Join(updates, ", "))
}

// =============================================================================
// COMPLETE COMMAND
// =============================================================================

func runComplete(args []string) {
	fs := flag.NewFlagSet("complete", flag.ExitOnError)
	commonFlags(fs)
	var sessionID, provider, token string
	fs.StringVar(&sessionID, "id", "", "Session ID (required)")
	fs.StringVar(&provider, "provider", "", "Payment provider, e.g. stripe or paypal (required)")
	fs.StringVar(&token, "token-value", "", "Payment token (defaults to a provider test token)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: acpclient complete -id <session-id> -provider NAME [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	parseFlags(fs, args)

	if sessionID == "" || provider == "" {
		fs.Usage()
		os.Exit(1)
	}
	if token == "" {
		token = testToken(provider)
	}

	req := acp.CompleteRequest{
		PaymentData: &acp.PaymentData{Token: token, Provider: provider},
	}

	var result acp.SessionWithOrder
	if err := doRequest(http.MethodPost, sessionPath(sessionID, "/complete"), req, &result); err != nil {
		fatal("Failed to complete session: %v", err)
	}

	if quiet {
		if result.Order != nil {
			fmt.Println(result.Order.ID)
		} else {
			fmt.Println(result.Status)
		}
		return
	}

	switch result.Status {
	case acp.StatusComplete:
		printSuccess("Payment completed!")
		if result.Order != nil {
			fmt.Printf("  Order ID: %s%s%s\n", colorGreen, result.Order.ID, colorReset)
			fmt.Printf("  Order status: %s\n", result.Order.Status)
		}
		fmt.Printf("  Total: %s%s%s\n", colorGreen, formatMoney(result.Total, result.Currency), colorReset)
	default:
		printWarning("Status: %s", result.Status)
	}
}

// =============================================================================
// CANCEL COMMAND
// =============================================================================

func runCancel(args []string) {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	commonFlags(fs)
	var sessionID, reason string
	fs.StringVar(&sessionID, "id", "", "Session ID (required)")
	fs.StringVar(&reason, "reason", "", "Intent trace reason code")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: acpclient cancel -id <session-id> [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	parseFlags(fs, args)

	if sessionID == "" {
		fs.Usage()
		os.Exit(1)
	}

	var body any
	if reason != "" {
		body = acp.CancelRequest{IntentTrace: &acp.IntentTrace{ReasonCode: reason}}
	}

	var session acp.Session
	if err := doRequest(http.MethodPost, sessionPath(sessionID, "/cancel"), body, &session); err != nil {
		fatal("Failed to cancel session: %v", err)
	}

	if quiet {
		fmt.Println(session.Status)
		return
	}
	printSuccess("Session canceled")
	fmt.Printf("  Status: %s%s%s\n", colorCyan, session.Status, colorReset)
}

// =============================================================================
// TEST DATA
// =============================================================================

func testBuyer(email string) *acp.Buyer {
	return &acp.Buyer{
		Email: acp.String(email),
		Name:  acp.String("Test Buyer"),
		Phone: acp.String("+14155551234"),
	}
}

func testAddress() *acp.Address {
	return &acp.Address{
		Line1:      acp.String("150 Elgin Street"),
		City:       acp.String("Ottawa"),
		State:      acp.String("ON"),
		PostalCode: acp.String("K2P 1L4"),
		Country:    acp.String("CA"),
	}
}

// testToken returns a sandbox token for well-known providers.
func testToken(provider string) string {
	switch provider {
	case "stripe":
		return "spt_test_visa"
	case "paypal":
		return "pp_test_wallet"
	default:
		return "tok_test_" + provider
	}
}

// =============================================================================
// HTTP HELPERS
// =============================================================================

// doRequest sends body as JSON and decodes a successful response into out.
// Error responses are reported with their ACP code and message.
func doRequest(method, path string, body, out any) error {
	var reqBody io.Reader
	var reqJSON []byte

	if body != nil {
		var err error
		reqJSON, err = json.MarshalIndent(body, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(reqJSON)
	}

	req, err := http.NewRequest(method, strings.TrimRight(proxyURL, "/")+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("API-Version", acp.Version)
	if apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+apiToken)
	}
	if method == http.MethodPost {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	if !quiet {
		printRequest(method, path, reqJSON)
	}

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)

	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if !quiet {
		printResponse(resp.StatusCode, respBody, duration)
	}

	if resp.StatusCode >= 400 {
		var apiErr acp.Error
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Code != "" {
			return fmt.Errorf("HTTP %d %s: %s", resp.StatusCode, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
