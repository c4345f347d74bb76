package main

import "github.com/JoshuaRamirez/ACS-sub017/cmd/acsd/cmd"

func main() {
	cmd.Execute()
}
