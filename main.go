package main

import "github.com/andresmejia3/posturewatch/cmd"

func main() {
	cmd.Execute()
}
