package main

import "github.com/ValentinKolb/versedb/cmd"

func main() {
	cmd.Execute()
}
