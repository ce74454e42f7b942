package main

import "github.com/nextlevelbuilder/meetwatch/cmd"

func main() {
	cmd.Execute()
}
