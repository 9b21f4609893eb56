package main

import (
	"flag"
	"log"
	"net"
	"os"

	"github.com/csrfshield/csrfshield/pkg/defaults"
	"github.com/csrfshield/csrfshield/pkg/server"
)

// runServe exposes the control protocol on stdio (the default) or a TCP
// listener.
func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML settings file")
	modelPath := fs.String("model", "", "JSON inference model file (default: built-in)")
	listen := fs.String("listen", "", "TCP listen address (default: stdio)")
	fs.Parse(args)

	settings, err := loadSettings(*configPath, *modelPath)
	if err != nil {
		fatalf("serve: %v", err)
	}

	if *listen == "" {
		orch, err := buildOrchestrator(settings)
		if err != nil {
			fatalf("serve: %v", err)
		}
		srv := server.New(orch, nil, defaults.Version)
		if err := srv.Serve(os.Stdin, os.Stdout); err != nil {
			// Broken protocol framing is fatal; the client treats process
			// exit as INTERNAL_ERROR for all in-flight requests.
			fatalf("serve: %v", err)
		}
		return
	}

	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		fatalf("serve: %v", err)
	}
	defer ln.Close()
	log.Printf("[serve] listening on %s", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			fatalf("serve: accept: %v", err)
		}
		go func(c net.Conn) {
			defer c.Close()
			// Each connection gets its own orchestrator so one client's
			// loaded capture never leaks into another's session listing.
			orch, err := buildOrchestrator(settings)
			if err != nil {
				log.Printf("[serve] %s: %v", c.RemoteAddr(), err)
				return
			}
			srv := server.New(orch, nil, defaults.Version)
			if err := srv.Serve(c, c); err != nil {
				log.Printf("[serve] %s: %v", c.RemoteAddr(), err)
			}
		}(conn)
	}
}
