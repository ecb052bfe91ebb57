/*
Copyright 2025 Auriga AI
*/
package main

import "github.com/aurigaai/auriga-setup-agent-go/cmd"

func main() {
	cmd.Execute()
}
