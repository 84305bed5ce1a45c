/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/ssargent/tuplekv/cmd/tuplekv/cmd"

func main() {
	cmd.Execute()
}
