package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fieldcare/fieldcare-backend/internal/app"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "token" {
		os.Exit(issueToken(ctx, os.Args[2:]))
	}

	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		application.Log.Error("Server failed", "error", err)
		os.Exit(1)
	}
	application.Log.Info("Server stopped")
}

// issueToken prints a signed access token for a user id. Used for local
// development since account management lives outside this service.
func issueToken(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	user := fs.Uint("user", 0, "user id to issue the token for")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	uid := uint64(*user)
	if uid == 0 && fs.NArg() > 0 {
		parsed, err := strconv.ParseUint(fs.Arg(0), 10, 64)
		if err != nil {
			fmt.Printf("invalid user id %q\n", fs.Arg(0))
			return 2
		}
		uid = parsed
	}
	if uid == 0 {
		fmt.Println("usage: fieldcare token -user <id>")
		return 2
	}

	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		return 1
	}
	defer application.Close()

	identity, err := application.Services.Identity.Resolve(ctx, uint(uid))
	if err != nil {
		fmt.Printf("resolve user %d: %v\n", uid, err)
		return 1
	}
	token, err := application.Services.Auth.IssueToken(uint(uid))
	if err != nil {
		fmt.Printf("issue token: %v\n", err)
		return 1
	}
	application.Log.Info("token issued", "user_id", uid, "capabilities", identity.Capabilities())
	fmt.Println(token)
	return 0
}
