// Copyright © 2017 Genome Research Limited
// Author: Sendu Bala <sb10@sanger.ac.uk>.
//
//  This file is part of wr.
//
//  wr is free software: you can redistribute it and/or modify
//  it under the terms of the GNU Lesser General Public License as published by
//  the Free Software Foundation, either version 3 of the License, or
//  (at your option) any later version.
//
//  wr is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU Lesser General Public License for more details.
//
//  You should have received a copy of the GNU Lesser General Public License
//  along with wr. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/howeyc/gopass"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"
)

func newKeysCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Inspect key-typed resource properties before they reach a request",
	}
	cmd.AddCommand(newKeysValidateCommand())
	return cmd
}

func newKeysValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <private-key-file>",
		Short: "Parse a private key file the way keys.Processor would, prompting for a passphrase if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runKeysValidate(args[0])
		},
	}
	return cmd
}

func runKeysValidate(path string) error {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("keys validate: reading %s: %w", path, err)
	}

	signer, err := ssh.ParsePrivateKey(pemBytes)
	if err != nil {
		var passphraseErr *ssh.PassphraseMissingError
		if !errors.As(err, &passphraseErr) {
			return fmt.Errorf("keys validate: %s: %w", path, err)
		}

		fmt.Printf("%s is encrypted. ", path)
		passphrase, err := gopass.GetPasswdPrompt("Passphrase: ", false, os.Stdin, os.Stdout)
		if err != nil {
			return fmt.Errorf("keys validate: reading passphrase: %w", err)
		}

		signer, err = ssh.ParsePrivateKeyWithPassphrase(pemBytes, passphrase)
		if err != nil {
			return fmt.Errorf("keys validate: %s: wrong passphrase or corrupt key: %w", path, err)
		}
	}

	fmt.Printf("%s: valid %s key\n", path, signer.PublicKey().Type())
	return nil
}
