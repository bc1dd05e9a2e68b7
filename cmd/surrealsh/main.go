// surrealsh is a small SurrealQL shell that drives the bridge through
// handles, the same way a foreign host does.
//
// Usage:
//
//	surrealsh [-addr memory] [-user root] [-ns test] [-db test]
//
// Each input line is sent as one query and every statement result is
// printed. Lines starting with a backslash are shell commands:
//
//	\use NS DB      switch namespace and database
//	\get THING      fetch one record, e.g. \get person:tobie
//	\json           toggle JSON output
//	\q              quit
//
// SURREAL_PASS supplies the password; otherwise it is prompted for when
// stdin is a terminal.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"syscall"

	surreal "github.com/harry-xi/surrealdb.java"
	"golang.org/x/term"
)

type shell struct {
	b    *surreal.Bridge
	conn surreal.Handle
	json bool
	out  io.Writer
}

func main() {
	addr := flag.String("addr", "memory", "database address")
	user := flag.String("user", "root", "root user name")
	ns := flag.String("ns", "test", "namespace")
	db := flag.String("db", "test", "database")
	flag.Parse()

	cfg, err := surreal.ConfigFromEnv()
	if err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}
	interactive := term.IsTerminal(int(syscall.Stdin))
	pass, err := password(interactive)
	if err != nil {
		log.Fatalf("Failed to read password: %v", err)
	}

	b := surreal.NewBridge(cfg)
	defer b.Close()

	conn, err := b.NewInstance()
	if err != nil {
		log.Fatalf("Failed to create instance: %v", err)
	}
	defer b.DeleteInstance(conn)
	if _, err := b.Connect(conn, []byte(*addr)); err != nil {
		log.Fatalf("Failed to connect to %s: %v", *addr, err)
	}
	if _, err := b.SigninRoot(conn, []byte(*user), []byte(pass)); err != nil {
		log.Fatalf("Failed to sign in: %v", err)
	}
	sh := &shell{b: b, conn: conn, out: os.Stdout}
	if err := sh.use(*ns, *db); err != nil {
		log.Fatalf("Failed to select %s/%s: %v", *ns, *db, err)
	}

	sh.run(os.Stdin, interactive)
}

func password(interactive bool) (string, error) {
	if p, ok := os.LookupEnv("SURREAL_PASS"); ok {
		return p, nil
	}
	if !interactive {
		return "root", nil
	}
	fmt.Print("Password: ")
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (sh *shell) run(in io.Reader, interactive bool) {
	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(sh.out, "> ")
		}
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == `\q` {
			return
		}
		if err := sh.exec(line); err != nil {
			fmt.Fprintln(sh.out, err)
		}
	}
}

func (sh *shell) exec(line string) error {
	if !strings.HasPrefix(line, `\`) {
		return sh.query(line)
	}
	fields := strings.Fields(line)
	switch fields[0] {
	case `\use`:
		if len(fields) != 3 {
			return fmt.Errorf(`usage: \use NS DB`)
		}
		return sh.use(fields[1], fields[2])
	case `\get`:
		if len(fields) != 2 {
			return fmt.Errorf(`usage: \get THING`)
		}
		return sh.get(fields[1])
	case `\json`:
		sh.json = !sh.json
		return nil
	default:
		return fmt.Errorf("unknown command %s", fields[0])
	}
}

func (sh *shell) use(ns, db string) error {
	if _, err := sh.b.UseNs(sh.conn, []byte(ns)); err != nil {
		return err
	}
	_, err := sh.b.UseDb(sh.conn, []byte(db))
	return err
}

func (sh *shell) query(text string) error {
	r, err := sh.b.Query(sh.conn, []byte(text))
	if err != nil {
		return err
	}
	defer sh.b.ResponseRelease(r)
	n, err := sh.b.ResponseSize(r)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		v, err := sh.b.ResponseTake(r, i)
		if err != nil {
			fmt.Fprintf(sh.out, "-- statement %d: %v\n", i+1, err)
			continue
		}
		if err := sh.print(i, v); err != nil {
			return err
		}
	}
	return nil
}

func (sh *shell) get(text string) error {
	th, err := sh.b.ThingParse([]byte(text))
	if err != nil {
		return err
	}
	defer sh.b.ValueRelease(th)
	v, err := sh.b.SelectThing(sh.conn, th)
	if err != nil {
		return err
	}
	return sh.print(0, v)
}

// print writes and releases a value handle.
func (sh *shell) print(i int, v surreal.Handle) error {
	defer sh.b.ValueRelease(v)
	render := sh.b.ValueString
	if sh.json {
		render = sh.b.ValueToJSON
	}
	s, err := render(v)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "-- statement %d\n%s\n", i+1, s)
	return nil
}
