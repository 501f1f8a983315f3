// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/omnidao/bridge"
	"github.com/omnidao/bridge/controller"
	"github.com/omnidao/bridge/governance"
	"github.com/omnidao/bridge/guard"
	"github.com/omnidao/bridge/payload"
	"github.com/omnidao/bridge/tree"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bridgecli",
	Short: "Omnidao bridge - cross-chain governance CLI",
	Long: `bridgecli provides tools for building and inspecting the command
envelopes the Omnidao governance bridge sends between chains, and an
in-process demo of the full proposal-to-controller pipeline.`,
	Version: fmt.Sprintf("%s (built %s)", version, buildDate),
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(demoCmd)

	encodeCmd.Flags().String("command", "update-metadata", "command: update-metadata, transfer-authority, pause, unpause")
	encodeCmd.Flags().Uint64("nonce", 1, "envelope nonce")
	encodeCmd.Flags().String("uri", "", "collection metadata URI")
	encodeCmd.Flags().String("name", "", "collection name")
	encodeCmd.Flags().String("symbol", "", "collection symbol")
	encodeCmd.Flags().String("authority", "", "new authority key (CB58)")

	decodeCmd.Flags().String("message", "", "hex-encoded envelope")
}

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode a command envelope",
	Long:  `Encode a governance command into the wire envelope and print it as hex.`,
	Run: func(cmd *cobra.Command, args []string) {
		command, _ := cmd.Flags().GetString("command")
		nonce, _ := cmd.Flags().GetUint64("nonce")

		p, err := payloadFromFlags(cmd, command)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid payload: %v\n", err)
			os.Exit(1)
		}
		body, err := p.Encode()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode payload: %v\n", err)
			os.Exit(1)
		}
		msg, err := bridge.NewMessage(p.Command(), nonce, time.Now(), body)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to build envelope: %v\n", err)
			os.Exit(1)
		}
		raw, err := msg.Encode()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode envelope: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Envelope created:\n")
		fmt.Printf("  Command: %s\n", msg.Command)
		fmt.Printf("  Nonce: %d\n", msg.Nonce)
		fmt.Printf("  Timestamp: %d\n", msg.Timestamp)
		fmt.Printf("  Encoded: %x\n", raw)
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode a command envelope",
	Long:  `Decode a hex-encoded wire envelope and print its header and payload.`,
	Run: func(cmd *cobra.Command, args []string) {
		messageHex, _ := cmd.Flags().GetString("message")

		raw, err := hex.DecodeString(messageHex)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid message hex: %v\n", err)
			os.Exit(1)
		}
		msg, err := bridge.Decode(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to decode envelope: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Envelope:\n")
		fmt.Printf("  Command: %s\n", msg.Command)
		fmt.Printf("  Nonce: %d\n", msg.Nonce)
		fmt.Printf("  Timestamp: %d (%s)\n", msg.Timestamp, time.Unix(msg.Timestamp, 0).UTC())
		fmt.Printf("  Version: %d\n", msg.Version)

		p, err := payload.Parse(msg.Command, msg.Payload)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to decode payload: %v\n", err)
			os.Exit(1)
		}
		switch v := p.(type) {
		case *payload.UpdateMetadata:
			fmt.Printf("  URI: %s\n  Name: %s\n  Symbol: %s\n", v.URI, v.Name, v.Symbol)
		case *payload.BatchUpdate:
			fmt.Printf("  Entries: %d\n", len(v.Updates))
		case *payload.TransferAuthority:
			fmt.Printf("  New authority: %s\n", v.NewAuthority)
		case *payload.BurnBatch:
			fmt.Printf("  Entries: %d\n", len(v.Requests))
		case *payload.TransferBatch:
			fmt.Printf("  Entries: %d\n", len(v.Requests))
		}
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run an in-process governance round trip",
	Long: `Run the full pipeline against in-memory components: create a
proposal, vote it through, execute it, and watch the controller apply it.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDemo(); err != nil {
			fmt.Fprintf(os.Stderr, "Demo failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func payloadFromFlags(cmd *cobra.Command, command string) (payload.Payload, error) {
	switch command {
	case "update-metadata":
		uri, _ := cmd.Flags().GetString("uri")
		name, _ := cmd.Flags().GetString("name")
		symbol, _ := cmd.Flags().GetString("symbol")
		return &payload.UpdateMetadata{URI: uri, Name: name, Symbol: symbol}, nil
	case "transfer-authority":
		authority, _ := cmd.Flags().GetString("authority")
		id, err := ids.FromString(authority)
		if err != nil {
			return nil, err
		}
		return &payload.TransferAuthority{NewAuthority: id}, nil
	case "pause":
		return &payload.Pause{}, nil
	case "unpause":
		return &payload.Unpause{}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

func runDemo() error {
	const (
		srcEID uint32 = 30101
		dstEID uint32 = 30168
	)
	var (
		daoContract = common.HexToAddress("0x0000000000000000000000000000000000000d40")
		owner       = common.HexToAddress("0x0000000000000000000000000000000000000001")
		admin       = common.HexToAddress("0x0000000000000000000000000000000000000002")
		member      = common.HexToAddress("0x0000000000000000000000000000000000000003")
	)

	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	now := time.Now()
	clock := func() time.Time { return now }

	mem, err := tree.NewMemory(10)
	if err != nil {
		return err
	}
	ctrl, err := controller.New(
		log.Named("controller"),
		prometheus.NewRegistry(),
		mem,
		controller.Config{
			SourceEID:        srcEID,
			Peers:            map[uint32]common.Address{srcEID: daoContract},
			Authority:        ids.ID{0x01},
			CollectionURI:    "https://x/0.json",
			CollectionName:   "Omni",
			CollectionSymbol: "OMNI",
		},
		controller.WithClock(clock),
	)
	if err != nil {
		return err
	}

	transport := bridge.NewMemoryTransport(srcEID, daoContract, 100, 1)
	transport.Register(dstEID, ctrl)

	dao := governance.New(
		log.Named("dao"),
		transport,
		guard.New(guard.DefaultSendLimit, guard.DefaultSendWindow, guard.WithClock(clock)),
		dstEID,
		owner,
		admin,
		governance.WithClock(clock),
	)
	if err := dao.AddMember(owner, member); err != nil {
		return err
	}

	proposal, err := dao.CreateProposal(owner, "point collection at v1 metadata",
		&payload.UpdateMetadata{URI: "https://x/1.json", Name: "Omni", Symbol: "OMNI"})
	if err != nil {
		return err
	}
	if err := dao.Vote(owner, proposal.ID, true); err != nil {
		return err
	}
	if err := dao.Vote(member, proposal.ID, true); err != nil {
		return err
	}

	// Fast-forward past the voting deadline.
	now = now.Add(governance.DefaultVotingPeriod + time.Second)

	receipt, err := dao.ExecuteProposal(context.Background(), owner, proposal.ID)
	if err != nil {
		return err
	}

	uri, name, symbol := ctrl.Collection()
	fmt.Printf("\nRound trip complete:\n")
	fmt.Printf("  Delivery GUID: %s\n", receipt.GUID)
	fmt.Printf("  Nonce: %d\n", receipt.Nonce)
	fmt.Printf("  Collection: %s (%s) -> %s\n", name, symbol, uri)

	// Replaying the recorded delivery must fail the nonce gate.
	if err := transport.Redeliver(context.Background(), transport.Sent[0]); err != nil {
		fmt.Printf("  Replay rejected: %v\n", err)
	}
	return nil
}
