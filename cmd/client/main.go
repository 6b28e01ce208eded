package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/atinyakov/DocsPortal/internal/api"
	"github.com/atinyakov/DocsPortal/internal/client/portal"
	"github.com/atinyakov/DocsPortal/internal/client/session"
	"github.com/atinyakov/DocsPortal/internal/client/sidebar"
	"github.com/atinyakov/DocsPortal/internal/config"
	"github.com/atinyakov/DocsPortal/internal/logger"
	"github.com/atinyakov/DocsPortal/internal/models"
)

var (
	version   string
	buildDate string
)

// repl runs the interactive shell loop, accepting commands to browse
// and manage documentation.
func repl(ctx context.Context, p *portal.Portal) {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("docsportal> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Println("Available commands: help, login <email> <password>, logout, whoami,")
			fmt.Println("  sidebar <scope>, search <query>, read <scope> <slug>, related <id>,")
			fmt.Println("  feedback <id> <rating> [comment], create <scope> <slug> <title>,")
			fmt.Println("  edit <id> <title>, delete <id>, exit")
		case "login":
			if len(args) < 3 {
				fmt.Println("Usage: login <email> <password>")
				continue
			}
			if err := p.Login(ctx, args[1], args[2]); err != nil {
				fmt.Println("Login failed:", err)
				continue
			}
			fmt.Println("Logged in")
		case "logout":
			p.Logout(ctx)
			fmt.Println("Logged out")
		case "whoami":
			printSession(p.Sessions.Snapshot())
		case "sidebar":
			if len(args) < 2 {
				fmt.Println("Usage: sidebar <platform|admin|organization|branch>")
				continue
			}
			scope := sidebar.Scope(args[1])
			if err := p.Sidebar.Load(ctx, scope); err != nil {
				fmt.Println("Sidebar load failed:", err)
				continue
			}
			printTree(p.Sidebar.Tree(scope))
		case "search":
			if len(args) < 2 {
				fmt.Println("Usage: search <query>")
				continue
			}
			state := p.Search.Execute(ctx, strings.Join(args[1:], " "))
			printResults(state.Results, state.Err)
		case "read":
			if len(args) < 3 {
				fmt.Println("Usage: read <scope> <slug>")
				continue
			}
			readArticle(ctx, p, args[1], args[2])
		case "related":
			if len(args) < 2 {
				fmt.Println("Usage: related <id>")
				continue
			}
			results, err := p.API.RelatedArticles(ctx, args[1])
			if err != nil {
				fmt.Println("Related lookup failed:", err)
				continue
			}
			printResults(results, "")
		case "feedback":
			if len(args) < 3 {
				fmt.Println("Usage: feedback <id> <rating> [comment]")
				continue
			}
			rating, err := strconv.Atoi(args[2])
			if err != nil {
				fmt.Println("Rating must be a number between 1 and 5")
				continue
			}
			req := api.FeedbackRequest{Rating: rating, Comment: strings.Join(args[3:], " ")}
			if err := p.API.SubmitFeedback(ctx, args[1], req); err != nil {
				fmt.Println("Feedback failed:", err)
				continue
			}
			fmt.Println("Feedback submitted")
		case "create":
			if len(args) < 4 {
				fmt.Println("Usage: create <scope> <slug> <title>")
				continue
			}
			if !p.Sessions.HasPermission(models.PermissionCreate) {
				fmt.Println("You do not have permission to create articles")
				continue
			}
			input := api.ArticleInput{Scope: args[1], Slug: args[2], Title: strings.Join(args[3:], " ")}
			article, err := p.API.CreateArticle(ctx, input)
			if err != nil {
				fmt.Println("Create failed:", err)
				continue
			}
			fmt.Println("Created article", article.ID)
		case "edit":
			if len(args) < 3 {
				fmt.Println("Usage: edit <id> <title>")
				continue
			}
			if !p.Sessions.HasPermission(models.PermissionEdit) {
				fmt.Println("You do not have permission to edit articles")
				continue
			}
			input := api.ArticleInput{Title: strings.Join(args[2:], " ")}
			if _, err := p.API.PatchArticle(ctx, args[1], input); err != nil {
				fmt.Println("Edit failed:", err)
				continue
			}
			fmt.Println("Article updated")
		case "delete":
			if len(args) < 2 {
				fmt.Println("Usage: delete <id>")
				continue
			}
			if !p.Sessions.HasPermission(models.PermissionDelete) {
				fmt.Println("You do not have permission to delete articles")
				continue
			}
			if err := p.API.DeleteArticle(ctx, args[1]); err != nil {
				fmt.Println("Delete failed:", err)
				continue
			}
			fmt.Println("Article deleted")
		case "exit":
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

// readArticle fetches and prints one article, choosing the privileged
// endpoint for the platform scope, and records the view best-effort.
func readArticle(ctx context.Context, p *portal.Portal, scope, slug string) {
	var (
		article *models.Article
		err     error
	)
	if scope == "platform" {
		article, err = p.API.PlatformArticleBySlug(ctx, slug)
	} else {
		article, err = p.API.PublicArticleBySlug(ctx, slug, scope)
	}
	if err != nil {
		fmt.Println("Article fetch failed:", err)
		return
	}
	fmt.Printf("%s (%d min read)\n\n%s\n", article.Title, article.ReadingTime, article.Content)
	_ = p.API.TrackView(ctx, article.ID)
}

func printSession(s session.Session) {
	if s.Status != session.StatusAuthenticated {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("Logged in as %s <%s>\n", s.Claims.Name, s.Claims.Email)
	fmt.Print("Permissions:")
	for _, p := range []models.Permission{models.PermissionView, models.PermissionCreate, models.PermissionEdit, models.PermissionDelete} {
		if _, ok := s.Permissions[p]; ok {
			fmt.Printf(" %s", p)
		}
	}
	fmt.Println()
}

func printTree(tree sidebar.Tree) {
	if tree.State != sidebar.StateReady {
		fmt.Printf("Sidebar %s: %s %s\n", tree.Scope, tree.State, tree.Reason)
		return
	}
	for _, category := range tree.Categories {
		fmt.Println(category.Name)
		for _, ref := range category.Articles {
			fmt.Printf("  %s (%s)\n", ref.Title, ref.Slug)
		}
	}
}

func printResults(results []models.SearchResult, errMessage string) {
	if errMessage != "" {
		fmt.Println("Search failed:", errMessage)
		return
	}
	if len(results) == 0 {
		fmt.Println("No results")
		return
	}
	for _, r := range results {
		fmt.Printf("[%s] %s: %s\n", r.Scope, r.Title, r.Excerpt)
	}
}

// main parses command-line flags, builds the portal, and starts the shell.
func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			fmt.Printf("DocsPortal Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
			return
		}
	}

	options := config.Parse()

	zl := logger.New()
	if err := zl.Init(options.LogLevel); err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Log.Sync() }()

	p, err := portal.New(options.BaseURL, options.StateDir, nil, func(notice string) {
		fmt.Println("!", notice)
	}, zl.Log)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = p.Close() }()

	repl(context.Background(), p)
}
