package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/harrylevesque/csms/internal/client"
	"github.com/harrylevesque/csms/internal/dashboard"
)

// Default server base URL; can override with CSMS_SERVER env var or -server flag.
var serverBaseURL = "http://localhost:8080"

func main() {
	cmd := flag.String("cmd", "snapshot", "Command: snapshot|watch|export")
	serverFlag := flag.String("server", "", "Override server base URL (e.g. https://csms.example.com)")
	user := flag.String("user", "admin", "Operator username")
	path := flag.String("path", "/export/report.pdf", "Export path (for export)")
	out := flag.String("out", "", "Output file (for export, default derived from path)")
	flag.Parse()
	if env := os.Getenv("CSMS_SERVER"); env != "" {
		serverBaseURL = strings.TrimRight(env, "/")
	}
	if *serverFlag != "" {
		serverBaseURL = strings.TrimRight(*serverFlag, "/")
	}
	if err := run(*cmd, *user, *path, *out); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func run(cmd, user, path, out string) error {
	password := os.Getenv("CSMS_PASSWORD")
	if password == "" {
		return errors.New("CSMS_PASSWORD must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.New(serverBaseURL)
	if err != nil {
		return err
	}
	if err := c.Login(ctx, user, password); err != nil {
		return err
	}
	defer c.Logout(context.Background())

	switch cmd {
	case "snapshot":
		snap, err := c.Snapshot(ctx)
		if err != nil {
			return err
		}
		printSnapshot(snap)
		return nil
	case "watch":
		return c.Watch(ctx, func(s dashboard.Snapshot) error {
			printSnapshot(s)
			fmt.Println()
			return nil
		})
	case "export":
		return export(ctx, c, path, out)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func export(ctx context.Context, c *client.Client, path, out string) error {
	if out == "" {
		out = path[strings.LastIndex(path, "/")+1:]
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := c.Download(ctx, path, f); err != nil {
		f.Close()
		os.Remove(out)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Saved %s to %s\n", path, out)
	return nil
}

func printSnapshot(s dashboard.Snapshot) {
	fmt.Printf("CSMS %s\n", s.Time.Format(time.DateTime))
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PARAMETER\tVALUE\tSTATUS")
	for _, r := range s.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Label, r.Display, r.Status.Label)
	}
	tw.Flush()
	if s.Alarm.Active {
		fmt.Println("!!", s.Alarm.Message)
	}
	if s.Safe {
		fmt.Println(s.SafeMessage)
	}
	for _, a := range s.Alerts {
		fmt.Printf("[%s] %s\n", strings.ToUpper(string(a.Severity)), a.Message)
	}
}
