// Command insightchat is a login-gated terminal chat for an analytics backend.
package main

import "github.com/diogo/insightchat/internal/commands"

func main() {
	commands.Execute()
}
