package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"raftkv/client"
)

const defaultTimeout = time.Second

func main() {
	root := &cobra.Command{
		Use:   "raftkv-client <addr>",
		Short: "Talk to a replicated key/value cluster, following leader redirects",
	}

	root.AddCommand(
		getCmd(),
		putCmd(),
		deleteCmd(),
		showLogCmd(),
		replCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <addr> <key>",
		Short: "Retrieve a value by key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(defaultTimeout)
			result, err := c.Get(args[0], args[1])
			if err != nil {
				return err
			}
			printResult(result)
			return nil
		},
	}
}

func putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <addr> <key> <value>",
		Short: "Store a key/value pair",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(defaultTimeout)
			result, err := c.Put(args[0], args[1], args[2])
			if err != nil {
				return err
			}
			printResult(result)
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <addr> <key>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(defaultTimeout)
			result, err := c.Delete(args[0], args[1])
			if err != nil {
				return err
			}
			printResult(result)
			return nil
		},
	}
}

func showLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-log <addr>",
		Short: "Print the committed log of a single peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(defaultTimeout)
			log, err := c.ShowLog(args[0])
			if err != nil {
				return err
			}
			if len(log) == 0 {
				fmt.Println("log is empty")
				return nil
			}
			for idx, entry := range log {
				fmt.Printf("  log index %d: %v\n", idx, entry)
			}
			return nil
		},
	}
}

func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl <addr>",
		Short: "Interactive session against one starting peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(args[0])
		},
	}
}

func runRepl(addr string) error {
	c := client.New(defaultTimeout)
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("commands: get <key> | put <key> <value> | delete <key> | show_log | exit")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "exit", "quit":
			return nil

		case "get":
			if len(fields) != 2 {
				fmt.Println("usage: get <key>")
				continue
			}
			result, err := c.Get(addr, fields[1])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			printResult(result)

		case "put":
			if len(fields) < 3 {
				fmt.Println("usage: put <key> <value>")
				continue
			}
			result, err := c.Put(addr, fields[1], strings.Join(fields[2:], " "))
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			printResult(result)

		case "delete":
			if len(fields) != 2 {
				fmt.Println("usage: delete <key>")
				continue
			}
			result, err := c.Delete(addr, fields[1])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			printResult(result)

		case "show_log":
			log, err := c.ShowLog(addr)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			for idx, entry := range log {
				fmt.Printf("  log index %d: %v\n", idx, entry)
			}

		default:
			fmt.Println("unknown command, use: get, put, delete, show_log, exit")
		}
	}
	return scanner.Err()
}

func printResult(r *client.Result) {
	fmt.Printf("%s request result: %+v\n", r.Code, r.Payload)
}
