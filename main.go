package main

import "silver-social-backend/cmd"

func main() {
	cmd.Run()
}
