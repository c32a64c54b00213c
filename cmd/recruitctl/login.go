package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"recruitai/internal/localstore"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and remember the session on this machine",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the saved session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in recruiter",
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)

	loginCmd.Flags().StringP("email", "e", "", "account email (prompted when empty)")
}

func runLogin(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	email, _ := cmd.Flags().GetString("email")
	if strings.TrimSpace(email) == "" {
		p := promptui.Prompt{
			Label: "Email",
			Validate: func(s string) error {
				if !strings.Contains(s, "@") {
					return errors.New("enter an email address")
				}
				return nil
			},
		}
		if email, err = p.Run(); err != nil {
			return err
		}
	}

	p := promptui.Prompt{Label: "Password", Mask: '*'}
	password, err := p.Run()
	if err != nil {
		return err
	}

	s, err := e.api.Login(cmd.Context(), email, password)
	if err != nil {
		return err
	}
	saved := session{Token: s.Token, ExpiresAt: s.ExpiresAt}
	if s.User != nil {
		saved.Name, saved.Email, saved.Company = s.User.Name, s.User.Email, s.User.Company
	}
	if err := e.state.PutJSON(cmd.Context(), localstore.KeyUser, saved); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	fmt.Printf("%s %s <%s>\n", labelStyle.Render("Signed in as"), saved.Name, saved.Email)
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.api.Logout(cmd.Context()); err != nil {
		fmt.Println(errorStyle.Render("server logout failed: " + err.Error()))
	}
	if err := e.state.Delete(cmd.Context(), localstore.KeyUser); err != nil {
		return err
	}
	fmt.Println("Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	u, err := e.api.Me(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("%s %s <%s>\n", labelStyle.Render("Name:"), u.Name, u.Email)
	if u.Company != "" {
		fmt.Printf("%s %s\n", labelStyle.Render("Company:"), u.Company)
	}
	return nil
}
