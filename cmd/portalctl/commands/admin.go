package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"portal/internal/apperr"
	"portal/internal/auth"
	"portal/internal/models"
	"portal/internal/repository"
	"portal/internal/validate"
)

var (
	adminName     string
	adminEmail    string
	adminPassword string
)

// Admins cannot sign up through the API; this is the only way to make one.
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account",
	Long: `Create an account with the admin role.

Examples:
  portalctl create-admin --email kades@desa.id --name "Kepala Desa" --password s3cret!`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer d.Close()

		users := repository.NewUserRepository(d)
		svc := auth.NewService(users, nil, validate.New(), 0, log)
		u, err := svc.CreateUser(cmd.Context(), models.RegisterInput{
			Name:     adminName,
			Email:    adminEmail,
			Password: adminPassword,
		}, models.RoleAdmin)
		if err != nil {
			return describe(err)
		}
		printAdmin(cmd.OutOrStdout(), u)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminName, "name", "Admin Desa", "Display name")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Login email")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Login password (6 to 72 characters)")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(createAdminCmd)
}

// describe turns validation failures into one line per field.
func describe(err error) error {
	ve, ok := apperr.IsValidation(err)
	if !ok {
		return err
	}
	return fmt.Errorf("invalid input: %s", ve.Error())
}

func printAdmin(w io.Writer, u models.User) {
	fmt.Fprintln(w, "Admin created")
	fmt.Fprintf(w, "  id:    %d\n", u.ID)
	fmt.Fprintf(w, "  name:  %s\n", u.Name)
	fmt.Fprintf(w, "  email: %s\n", u.Email)
}
