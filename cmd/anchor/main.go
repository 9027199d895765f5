package main

import "github.com/chainproof/anchor/cmd/anchor/cmd"

func main() {
	cmd.Execute()
}
