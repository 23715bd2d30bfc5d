package main

import "github.com/vibast-solutions/ms-go-verification-mailer/cmd"

func main() {
	cmd.Execute()
}
