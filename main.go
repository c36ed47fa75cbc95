/*
Copyright © 2025 Katie Mulliken <katie@mulliken.net>
*/
package main

import (
	"github.com/joho/godotenv"

	"github.com/seckatie/xmarkd/cmd"
)

func main() {
	// A missing .env is fine; environment overrides are optional.
	_ = godotenv.Load()
	cmd.Execute()
}
