package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/preservd/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-enabled      switch preservation on
//	-s string     archival store server
//	-t int        archival store port
//	-l string     local binary root
//	-j int        worker pool concurrency
//	-a string     gRPC health bind address (e.g., ":50051")
//	-d string     PostgreSQL DSN
//	-u string     S3 root user
//	-p string     S3 root password
//	-b string     S3 bucket name
//	-g string     S3 region
//	-e string     S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// The arguments are filtered through flagx.FilterArgs first so the one-shot
// flags handled by the command do not collide with these.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:],
		[]string{"-enabled", "-s", "-t", "-l", "-j", "-a", "-d", "-u", "-p", "-b", "-g", "-e"},
		"-enabled")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.BoolVar(&config.Enabled, "enabled", config.Enabled, "enable preservation")
	fs.StringVar(&config.FedoraServer, "s", config.FedoraServer, "archival store server")
	fs.IntVar(&config.FedoraPort, "t", config.FedoraPort, "archival store port")
	fs.StringVar(&config.LocalRoot, "l", config.LocalRoot, "local binary root")
	fs.IntVar(&config.Concurrency, "j", config.Concurrency, "worker pool concurrency")
	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC health address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
