package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"raftkv/cluster"
	"raftkv/config"
	"raftkv/raft"
	"raftkv/server"
	"raftkv/store"
)

func main() {
	var rosterPath string
	var index int

	root := &cobra.Command{
		Use:   "raftkv-server",
		Short: "Run one peer of a replicated key/value cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(rosterPath, index)
		},
	}
	root.Flags().StringVar(&rosterPath, "roster", "", "path to the cluster roster file (one peer base URL per line)")
	root.Flags().IntVar(&index, "index", 0, "index of this peer within the roster file")
	root.MarkFlagRequired("roster")

	if err := root.Execute(); err != nil {
		logrus.WithError(err).Fatal("server exited")
		os.Exit(1)
	}
}

func serve(rosterPath string, index int) error {
	addrs, err := config.LoadRoster(rosterPath)
	if err != nil {
		return err
	}
	roster, err := cluster.New(addrs, index)
	if err != nil {
		return err
	}

	timing, err := config.LoadTiming()
	if err != nil {
		return err
	}

	kv := store.New()
	transport := raft.NewHTTPTransport(timing.RequestsTimeout)

	node := raft.NewNode(raft.Config{
		Addr:      roster.Self,
		Fellows:   roster.Fellows,
		Timing:    timing,
		Transport: transport,
		Store:     kv,
	})
	node.Start()
	defer node.Shutdown()

	srv := server.New(node)

	listenAddr, err := hostPort(roster.Self)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"addr":    roster.Self,
		"fellows": roster.Fellows,
	}).Info("peer starting")

	return http.ListenAndServe(listenAddr, srv.Handler())
}

// hostPort strips the scheme from a base URL ("http://host:port" ->
// "host:port") so it can be passed to http.ListenAndServe.
func hostPort(addr string) (string, error) {
	for _, scheme := range []string{"http://", "https://"} {
		if strings.HasPrefix(addr, scheme) {
			return strings.TrimPrefix(addr, scheme), nil
		}
	}
	return "", fmt.Errorf("roster entry %q missing http(s):// scheme", addr)
}
