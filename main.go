package main

import "github.com/approveflow/expense-service/cmd"

func main() {
	cmd.Execute()
}
