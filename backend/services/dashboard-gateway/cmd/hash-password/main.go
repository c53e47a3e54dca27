// Command hash-password prints the bcrypt hash of a password read from stdin,
// for the passwordHash field of a configured operator account.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"signaltracker/backend/libs/logging"
	"signaltracker/backend/services/dashboard-gateway/internal/password"
)

func main() {
	logger, err := logging.NewLogger("hash-password")
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		logger.Fatal("read password from stdin", zap.Error(err))
	}

	hash, err := password.NewBcryptHasher(0).Hash(strings.TrimRight(line, "\r\n"))
	if err != nil {
		logger.Fatal("hash password", zap.Error(err))
	}
	fmt.Println(hash)
}
