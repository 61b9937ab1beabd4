// Package main is the kubun CLI entry point.
package main

func main() {
	Execute()
}
