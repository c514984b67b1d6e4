// Command stratumctl is an interactive client for a stratumd server.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "stratumctl",
		Usage: "interactive client for a stratum server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "localhost:7070", Usage: "server address"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer conn.Close()

	fmt.Printf("Connected to %s\n", addr)
	fmt.Println("Commands: get <key> | set <key>|<value> | delete <key> | flush | compact | status | quit")
	fmt.Println("Values: i:<decimal> for Int64, f:<decimal> for Float64, anything else for Str")
	fmt.Println()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}

		if _, err := writer.WriteString(line + "\r"); err != nil {
			fmt.Printf("send error: %v\n", err)
			break
		}
		if err := writer.Flush(); err != nil {
			fmt.Printf("flush error: %v\n", err)
			break
		}

		response, err := reader.ReadString('\r')
		if err != nil {
			fmt.Printf("read error: %v\n", err)
			break
		}
		fmt.Println(strings.TrimSuffix(response, "\r"))
	}

	fmt.Println("goodbye")
	return nil
}
