package main

import "github.com/RohitDayanand/polykalshi-client/cmd"

func main() {
	cmd.Execute()
}
