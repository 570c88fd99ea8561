package main

import "github.com/igorsilveira/weeklypreview/cmd/weeklypreview"

func main() {
	weeklypreview.Execute()
}
