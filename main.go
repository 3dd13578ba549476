package main

import "github.com/ValentinKolb/propdb/cmd"

func main() {
	cmd.Execute()
}
