// Command accountctl is a small operator CLI for a running accountd
// server: it can register a user, log in, and fetch the profile a token
// belongs to. Passwords are prompted without echo.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/dmitrijs2005/accountd/internal/buildinfo"
)

const requestTimeout = 30 * time.Second

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	serverURL := flag.String("s", "http://localhost:8080", "accountd server URL")
	firstName := flag.String("f", "", "first name (register)")
	lastName := flag.String("l", "", "last name (register)")
	email := flag.String("e", "", "email (register, login)")
	token := flag.String("t", "", "bearer token (me)")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: accountctl [flags] register|login|me")
	}

	client := &http.Client{Timeout: requestTimeout}

	var err error
	switch flag.Arg(0) {
	case "register":
		err = register(client, *serverURL, *firstName, *lastName, *email)
	case "login":
		err = login(client, *serverURL, *email)
	case "me":
		err = me(client, *serverURL, *token)
	default:
		err = fmt.Errorf("unknown command: %q", flag.Arg(0))
	}

	if err != nil {
		log.Fatalf("%v", err)
	}
}

func register(client *http.Client, serverURL, firstName, lastName, email string) error {
	password, err := promptPassword()
	if err != nil {
		return err
	}

	return postJSON(client, serverURL+"/register", map[string]string{
		"firstName": firstName,
		"lastName":  lastName,
		"email":     email,
		"password":  password,
	})
}

func login(client *http.Client, serverURL, email string) error {
	password, err := promptPassword()
	if err != nil {
		return err
	}

	return postJSON(client, serverURL+"/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

func me(client *http.Client, serverURL, token string) error {
	req, err := http.NewRequest(http.MethodGet, serverURL+"/user", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func postJSON(client *http.Client, url string, body map[string]string) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := client.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("error reading password: %w", err)
	}
	return string(pw), nil
}

func printResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}
