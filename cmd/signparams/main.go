// Command signparams signs and verifies parameter sets from the shell, using
// the same configuration as the service.
//
//	signparams sign id=4 send_mail=yes
//	signparams verify 'id=4&send_mail=yes&sig=...'
//	signparams link confirm id=4 send_mail=yes
//	signparams encrypt-salt 'new salt'
//	signparams store-salt salt 'new salt'
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/julik/signed-params/internal/signature"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: signparams <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  sign key=value...           print the signature and the signed query string")
	fmt.Fprintln(w, "  checksum key=value...       print only the signature")
	fmt.Fprintln(w, "  verify QUERY                check the sig parameter of a query string")
	fmt.Fprintln(w, "  link ROUTE key=value...     print a signed URL for a service route")
	fmt.Fprintln(w, "  encrypt-salt SALT           print an enc: salt source for SALT")
	fmt.Fprintln(w, "  store-salt KEY SALT         write SALT to redis and print its redis: source")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "signing flags: -salt SOURCE, -algorithm NAME, -legacy, -config FILE")
	fmt.Fprintln(w, "algorithms:", strings.Join(signature.SupportedAlgorithms(), ", "))
}

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "sign":
		err = runSign(args[1:], stdout)
	case "checksum":
		err = runChecksum(args[1:], stdout)
	case "verify":
		err = runVerify(args[1:], stdout)
	case "link":
		err = runLink(args[1:], stdout)
	case "encrypt-salt":
		err = runEncryptSalt(args[1:], stdout)
	case "store-salt":
		err = runStoreSalt(args[1:], stdout)
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}

	if err == flag.ErrHelp {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		if signature.IsNoKey(err) {
			fmt.Fprintln(stderr, "hint: pass -salt or -config, or set SIGNED_PARAMS_SALT_SOURCE")
		}
		if exit, ok := err.(exitError); ok {
			return exit.code
		}
		return 1
	}
	return 0
}

type exitError struct {
	code int
	msg  string
}

func (e exitError) Error() string { return e.msg }
