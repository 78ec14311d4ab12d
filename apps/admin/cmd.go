package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/kitab-bazar/server/apps/shared"
	"github.com/kitab-bazar/server/core"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf    *core.Config
	svc     *shared.Services
	migrate func(command string, args ...string) error
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                                    - run a goose command (up, down, status, redo, version...)")
	fmt.Fprintln(cli.out, "  adduser -email EMAIL -name NAME [-type TYPE]             - create or update a user, the password is prompted")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL                               - reset user's password")
	fmt.Fprintln(cli.out, "  importlocations -file FILE                               - import provinces, districts & municipalities from a CSV")
	fmt.Fprintln(cli.out, "  importbooks -file FILE -as EMAIL                         - import books from a CSV on behalf of a catalog manager")
	fmt.Fprintln(cli.out, "  generatepackages -window ID [-export FILE]               - generate the packages of an order window")
	fmt.Fprintln(cli.out, "  deletepackages -window ID                                - delete the packages of an order window")
	fmt.Fprintln(cli.out, "  exportpackages -window ID -out FILE                      - export the packages of a window to xlsx")
	fmt.Fprintln(cli.out, "  exportbills -window ID -out FILE                         - export the school & institution bills of a window to xlsx")
}

// needsServices reports whether the command of args runs on the domain services.
func needsServices(args []string) bool {
	return len(args) > 1 && args[1] != "migrate"
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2], args[3:]...)

	case "adduser":
		fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
		email := fs.String("email", "", "The user's email.")
		name := fs.String("name", "", "The user's full name.")
		userType := fs.String("type", "super_admin", "The user's type.")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *email == "" || *name == "" {
			fs.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			fs.Usage()
			return errHelp
		}
		return cli.addUser(*email, *name, *userType, pwd)

	case "resetpassword":
		fs := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
		email := fs.String("email", "", "The user's email. The password will be prompted next.")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *email == "" {
			fs.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			fs.Usage()
			return errHelp
		}
		return cli.resetPassword(*email, pwd)

	case "importlocations", "importbooks":
		fs := flag.NewFlagSet(args[1], flag.ContinueOnError)
		file := fs.String("file", "", "The CSV file to import.")
		as := fs.String("as", "", "The email of the user importing the books.")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *file == "" || (args[1] == "importbooks" && *as == "") {
			fs.Usage()
			return errHelp
		}
		f, err := os.Open(*file)
		if err != nil {
			return err
		}
		defer f.Close()
		if args[1] == "importbooks" {
			return cli.importBooks(f, *as)
		}
		return cli.importLocations(f)

	case "generatepackages", "deletepackages", "exportpackages", "exportbills":
		isExport := args[1] == "exportpackages" || args[1] == "exportbills"
		fs := flag.NewFlagSet(args[1], flag.ContinueOnError)
		window := fs.String("window", "", "The order window ID.")
		out := fs.String("out", "", "The xlsx file to write.")
		export := fs.String("export", "", "Also export the generated packages to this xlsx file.")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *window == "" || (isExport && *out == "") {
			fs.Usage()
			return errHelp
		}
		switch args[1] {
		case "generatepackages":
			if err := cli.generatePackages(*window); err != nil || *export == "" {
				return err
			}
			return cli.exportPackages(*window, *export, false)
		case "deletepackages":
			return cli.deletePackages(*window)
		}
		return cli.exportPackages(*window, *out, args[1] == "exportbills")

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	return string(pwd), err
}
