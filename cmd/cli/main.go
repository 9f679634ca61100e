package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"recipehub/internal/reading"
	"recipehub/internal/recipes"
)

const defaultBaseURL = "http://localhost:8080"

type tokenData struct {
	Token string `json:"token"`
}

func main() {
	global := flag.NewFlagSet("recipehub", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "identity token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	rest := []string{}
	if len(args) > 1 {
		sub = args[1]
		rest = args[2:]
	}

	client := &http.Client{Timeout: 15 * time.Second}

	switch cmd {
	case "auth":
		handleAuth(ctx, client, *baseURL, *tokenPath, sub, rest)
	case "recipes":
		handleRecipes(ctx, client, *baseURL, *tokenPath, sub, rest)
	case "comments":
		handleComments(ctx, client, *baseURL, *tokenPath, sub, rest)
	case "live":
		handleLive(*baseURL, sub, rest)
	case "reading":
		handleReading(ctx, args[1:])
	default:
		printUsage()
		os.Exit(1)
	}
}

// Tokens come from the identity provider; the CLI only stores and forwards
// them.
func handleAuth(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		token := fs.String("id-token", "", "identity token issued by the provider")
		_ = fs.Parse(args)
		if *token == "" {
			log.Fatal("-id-token is required")
		}
		if err := saveToken(tokenPath, *token); err != nil {
			log.Fatalf("save token: %v", err)
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/api/auth/check", *token, nil, &resp); err != nil {
			log.Printf("token saved, but check failed (run `auth register` first?): %v", err)
			return
		}
		printJSON(resp)
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		name := fs.String("name", "", "display name (defaults to the token's name)")
		adminCode := fs.String("admin-code", "", "admin registration code")
		_ = fs.Parse(args)
		token := mustToken(tokenPath)

		endpoint := baseURL + "/api/auth/register"
		payload := map[string]string{"name": *name}
		if *adminCode != "" {
			endpoint = baseURL + "/api/admin/register"
			payload["admin_code"] = *adminCode
		}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, endpoint, token, payload, &resp); err != nil {
			log.Fatalf("register failed: %v", err)
		}
		printJSON(resp)
	case "check":
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/api/auth/check", mustToken(tokenPath), nil, &resp); err != nil {
			log.Fatalf("check failed: %v", err)
		}
		printJSON(resp)
	case "logout":
		if err := clearToken(tokenPath); err != nil {
			log.Fatalf("logout failed: %v", err)
		}
		fmt.Println("logged out")
	default:
		log.Fatal("usage: recipehub auth <login|register|check|logout>")
	}
}

func handleRecipes(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "search":
		fs := flag.NewFlagSet("recipes search", flag.ExitOnError)
		keyword := fs.String("q", "", "keywords, space separated (all must match)")
		genre := fs.String("genre", "", "exact genre")
		page := fs.Int("page", 1, "page number")
		perPage := fs.Int("per-page", recipes.DefaultPerPage, "page size")
		_ = fs.Parse(args)

		u, err := url.Parse(baseURL + "/api/recipes/search")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		if *keyword != "" {
			qv.Set("keyword", *keyword)
		}
		if *genre != "" {
			qv.Set("genre", *genre)
		}
		qv.Set("page", strconv.Itoa(*page))
		qv.Set("per_page", strconv.Itoa(*perPage))
		u.RawQuery = qv.Encode()

		var resp recipes.Page
		if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
			log.Fatalf("search failed: %v", err)
		}
		fmt.Printf("page %d/%d, %d total\n", resp.CurrentPage, resp.LastPage, resp.Total)
		for _, r := range resp.Data {
			fmt.Printf("  #%d  %s  [%s] %s  likes:%d\n", r.ID, r.Title, r.Genre, r.Servings, r.LikesCount)
		}
	case "show":
		id := idFlag("recipes show", args)
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/api/recipes/"+id, mustToken(tokenPath), nil, &resp); err != nil {
			log.Fatalf("show failed: %v", err)
		}
		printJSON(resp)
	case "like":
		id := idFlag("recipes like", args)
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/api/recipes/"+id+"/toggle-like", mustToken(tokenPath), nil, &resp); err != nil {
			log.Fatalf("like failed: %v", err)
		}
		printJSON(resp)
	case "liked":
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/api/user/liked-recipes", mustToken(tokenPath), nil, &resp); err != nil {
			log.Fatalf("liked failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: recipehub recipes <search|show|like|liked>")
	}
}

func handleComments(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "list":
		id := idFlag("comments list", args)
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/api/recipes/"+id+"/comments", token, nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "add":
		fs := flag.NewFlagSet("comments add", flag.ExitOnError)
		id := fs.Int64("id", 0, "recipe id")
		content := fs.String("content", "", "comment text")
		_ = fs.Parse(args)
		if *id <= 0 || strings.TrimSpace(*content) == "" {
			log.Fatal("-id and -content are required")
		}

		var resp map[string]any
		endpoint := baseURL + "/api/recipes/" + strconv.FormatInt(*id, 10) + "/comments"
		if err := doJSON(ctx, client, http.MethodPost, endpoint, token, map[string]string{"content": *content}, &resp); err != nil {
			log.Fatalf("add failed: %v", err)
		}
		printJSON(resp)
	case "delete":
		id := idFlag("comments delete", args)
		if err := doJSON(ctx, client, http.MethodDelete, baseURL+"/api/comments/"+id, token, nil, nil); err != nil {
			log.Fatalf("delete failed: %v", err)
		}
		fmt.Println("deleted")
	default:
		log.Fatal("usage: recipehub comments <list|add|delete>")
	}
}

func handleLive(baseURL, sub string, args []string) {
	switch sub {
	case "subscribe":
		fs := flag.NewFlagSet("live subscribe", flag.ExitOnError)
		wsURL := fs.String("ws", "", "WebSocket URL (defaults to /ws on API host)")
		_ = fs.Parse(args)

		endpoint := *wsURL
		if endpoint == "" {
			var err error
			endpoint, err = websocketURL(baseURL, "/ws")
			if err != nil {
				log.Fatalf("ws url: %v", err)
			}
		}
		if err := runWebSocket(endpoint); err != nil {
			log.Fatalf("subscribe failed: %v", err)
		}
	default:
		log.Fatal("usage: recipehub live subscribe")
	}
}

// handleReading prints the hiragana reading the server would index for the
// given text, using the in-process analyzer.
func handleReading(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("reading", flag.ExitOnError)
	analyzer := fs.String("analyzer", "kagome", "kagome, mecab or none")
	command := fs.String("command", "mecab -O yomi", "analyzer command for -analyzer=mecab")
	_ = fs.Parse(args)

	text := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(text) == "" {
		log.Fatal("usage: recipehub reading [-analyzer kagome] <text>")
	}

	a, err := reading.NewAnalyzer(*analyzer, *command)
	if err != nil {
		log.Printf("analyzer unavailable, folding only: %v", err)
		a = nil
	}
	n := reading.New(a)
	out, err := n.Normalize(ctx, text)
	if err != nil {
		log.Fatalf("normalize: %v", err)
	}
	fmt.Printf("%s\t(%s)\n", out, n.AnalyzerName())
}

func idFlag(name string, args []string) string {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	id := fs.Int64("id", 0, "id")
	_ = fs.Parse(args)
	if *id <= 0 {
		log.Fatal("-id is required")
	}
	return strconv.FormatInt(*id, 10)
}

func runWebSocket(wsURL string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[live] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(msg))
	}
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.recipehub-token.json"
	}
	return filepath.Join(home, ".recipehub", "token.json")
}

func saveToken(path, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", err
	}
	return strings.TrimSpace(td.Token), nil
}

func mustToken(path string) string {
	token, err := readToken(path)
	if err != nil {
		log.Fatalf("token not found, run `auth login` first: %v", err)
	}
	if token == "" {
		log.Fatal("token empty, run `auth login` first")
	}
	return token
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}

func printUsage() {
	fmt.Println("recipehub <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|register|check|logout")
	fmt.Println("  recipes search|show|like|liked")
	fmt.Println("  comments list|add|delete")
	fmt.Println("  live subscribe")
	fmt.Println("  reading [-analyzer kagome|mecab|none] <text>")
}
