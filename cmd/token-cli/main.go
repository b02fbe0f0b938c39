package main

import (
	"fmt"
	"math/big"
	"os"

	"ledgerkit/config"
	"ledgerkit/examples/token"
	"ledgerkit/fungible"
	"ledgerkit/host"
	"ledgerkit/nonfungible"
	"ledgerkit/types"
)

var configPath = defaultConfigPath()

func defaultConfigPath() string {
	if p := os.Getenv("TOKEN_CONFIG"); p != "" {
		return p
	}
	return "./service.toml"
}

func main() {
	args := os.Args[1:]
	for len(args) >= 2 && args[0] == "--config" {
		configPath = args[1]
		args = args[2:]
	}
	if len(args) < 1 {
		printUsage()
		return
	}

	command := args[0]
	switch command {
	case "init":
		initConfig()
	case "owner":
		showOwner()
	case "balance":
		if len(args) < 2 {
			fmt.Println("Error: Please provide an address.")
			printUsage()
			return
		}
		getBalance(args[1])
	case "register":
		if len(args) < 3 {
			fmt.Println("Error: Please provide an address and a deposit amount.")
			printUsage()
			return
		}
		register(args[1], args[2])
	case "mint":
		if len(args) < 4 {
			fmt.Println("Error: Please provide caller, receiver, and amount.")
			printUsage()
			return
		}
		mint(args[1], args[2], args[3])
	case "transfer":
		if len(args) < 4 {
			fmt.Println("Error: Please provide sender, receiver, and amount.")
			printUsage()
			return
		}
		transfer(args[1], args[2], args[3])
	case "mint-token":
		if len(args) < 4 {
			fmt.Println("Error: Please provide caller, receiver, and token id.")
			printUsage()
			return
		}
		mintToken(args[1], args[2], args[3])
	case "token-owner":
		if len(args) < 2 {
			fmt.Println("Error: Please provide a token id.")
			printUsage()
			return
		}
		tokenOwner(args[1])
	case "pause":
		if len(args) < 2 {
			fmt.Println("Error: Please provide the caller address.")
			printUsage()
			return
		}
		setPaused(args[1], true)
	case "unpause":
		if len(args) < 2 {
			fmt.Println("Error: Please provide the caller address.")
			printUsage()
			return
		}
		setPaused(args[1], false)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: token-cli [--config <path>] <command> [args]

Commands:
  init                                  Write a default service configuration.
  owner                                 Print the service owner.
  balance <address>                     Print an account's balances.
  register <address> <deposit>          Register an account with a storage deposit.
  mint <caller> <receiver> <amount>     Mint fungible supply (owner only).
  transfer <sender> <receiver> <amount> Move fungible balance.
  mint-token <caller> <receiver> <id>   Mint a registry token (owner only).
  token-owner <id>                      Print a token's owner.
  pause <caller>                        Pause the service (owner or operator).
  unpause <caller>                      Unpause the service (owner or operator).

Environment:
  TOKEN_CONFIG   Configuration path (default ./service.toml).
  TOKEN_OWNER    Boot-time owner address, used on first run only.`)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

func parseAddress(s string) types.Address {
	addr, err := types.ParseAddress(s)
	if err != nil {
		fatal(err)
	}
	return addr
}

func parseAmount(s string) *big.Int {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok || amount.Sign() < 0 {
		fatal(fmt.Errorf("invalid amount %q", s))
	}
	return amount
}

func bootOwner() types.Address {
	raw := os.Getenv("TOKEN_OWNER")
	if raw == "" {
		return types.Address{}
	}
	return parseAddress(raw)
}

func openService() (*token.Service, func()) {
	svc, err := token.Open(configPath, host.NewQueueScheduler(), bootOwner())
	if err != nil {
		fatal(err)
	}
	return svc, svc.Close
}

func initConfig() {
	cfg, err := config.Load(configPath)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Configuration ready at %s (service %q, namespace %q)\n", configPath, cfg.Name, cfg.Namespace)
}

func showOwner() {
	svc, closeFn := openService()
	defer closeFn()
	owner, ok, err := svc.Owner.Current()
	if err != nil {
		fatal(err)
	}
	if !ok {
		fmt.Println("Ownership has been renounced.")
		return
	}
	fmt.Println(owner)
}

func getBalance(rawAddr string) {
	svc, closeFn := openService()
	defer closeFn()
	addr := parseAddress(rawAddr)

	balance, err := svc.Ledger.BalanceOf(addr)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Fungible balance: %s\n", balance)

	rec, ok, err := svc.Vault.BalanceOf(addr)
	if err != nil {
		fatal(err)
	}
	if !ok {
		fmt.Println("Storage: not registered")
		return
	}
	fmt.Printf("Storage deposit:  %s (%d bytes used)\n", rec.Balance, rec.BytesUsed)
}

func register(rawAddr, rawAmount string) {
	svc, closeFn := openService()
	defer closeFn()
	addr := parseAddress(rawAddr)

	if _, err := svc.Vault.Deposit(addr, parseAmount(rawAmount)); err != nil {
		fatal(err)
	}
	if err := svc.Ledger.Register(addr); err != nil {
		fatal(err)
	}
	fmt.Printf("Registered %s\n", addr)
}

func mint(rawCaller, rawReceiver, rawAmount string) {
	svc, closeFn := openService()
	defer closeFn()
	if err := svc.MintSupply(parseAddress(rawCaller), parseAddress(rawReceiver), parseAmount(rawAmount), ""); err != nil {
		fatal(err)
	}
	fmt.Println("Minted.")
}

func transfer(rawSender, rawReceiver, rawAmount string) {
	svc, closeFn := openService()
	defer closeFn()
	err := svc.Ledger.Transfer(fungible.Transfer{
		Sender:   parseAddress(rawSender),
		Receiver: parseAddress(rawReceiver),
		Amount:   parseAmount(rawAmount),
	})
	if err != nil {
		fatal(err)
	}
	fmt.Println("Transferred.")
}

func mintToken(rawCaller, rawReceiver, id string) {
	svc, closeFn := openService()
	defer closeFn()
	err := svc.MintToken(parseAddress(rawCaller), nonfungible.Mint{
		TokenID:  nonfungible.TokenID(id),
		Receiver: parseAddress(rawReceiver),
	})
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Minted token %q\n", id)
}

func tokenOwner(id string) {
	svc, closeFn := openService()
	defer closeFn()
	owner, err := svc.Tokens.OwnerOf(nonfungible.TokenID(id))
	if err != nil {
		fatal(err)
	}
	fmt.Println(owner)
}

func setPaused(rawCaller string, paused bool) {
	svc, closeFn := openService()
	defer closeFn()
	if err := svc.SetPaused(parseAddress(rawCaller), paused); err != nil {
		fatal(err)
	}
	if paused {
		fmt.Println("Paused.")
	} else {
		fmt.Println("Unpaused.")
	}
}
