package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/civicreport/civic-report-api/config"
	"github.com/civicreport/civic-report-api/databases"
	"github.com/civicreport/civic-report-api/models"
)

// Creates a verified administrator or promotes an existing account. Admin
// accounts cannot be bootstrapped through the public API without an OTP
// round trip, so operators use this for the first state admin.
//
// Usage: go run scripts/seed_admin.go -email a@b.in -password secret -role state-admin
func main() {
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "plain text password, hashed before storage")
	name := flag.String("name", "Administrator", "display name")
	role := flag.String("role", models.RoleStateAdmin, "admin role")
	department := flag.String("department", "", "department for department-admin")
	district := flag.String("district", "", "district for district-admin")
	flag.Parse()

	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(1)
	}
	if !models.IsAdmin(*role) {
		fmt.Printf("role %q is not an admin role\n", *role)
		os.Exit(1)
	}

	conf := config.New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	client, err := databases.NewClient(conf)
	if err != nil {
		zap.S().Fatalw("failed to create mongo client", "error", err)
	}
	if err := client.Connect(ctx); err != nil {
		zap.S().Fatalw("failed to connect to mongo", "error", err)
	}
	defer client.Disconnect(context.Background())

	udb := databases.NewUserDatabase(databases.NewDatabase(conf, client))

	hashed, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		zap.S().Fatalw("failed to hash password", "error", err)
	}

	addr := strings.ToLower(strings.TrimSpace(*email))
	now := primitive.NewDateTimeFromTime(time.Now())

	existing, err := udb.FindOne(ctx, bson.M{"email": addr})
	if err == nil && existing != nil {
		_, err = udb.UpdateOne(ctx, bson.M{"_id": existing.ID}, bson.M{"$set": bson.M{
			"password":         string(hashed),
			"role":             *role,
			"department":       *department,
			"assignedDistrict": *district,
			"accountVerified":  true,
			"isActive":         true,
			"updatedAt":        now,
		}})
		if err != nil {
			zap.S().Fatalw("failed to promote user", "error", err)
		}
		fmt.Printf("promoted %s to %s\n", addr, *role)
		return
	}

	_, err = udb.InsertOne(ctx, models.User{
		ID:                 primitive.NewObjectID(),
		Name:               *name,
		Email:              addr,
		Password:           string(hashed),
		Role:               *role,
		Department:         *department,
		AssignedDistrict:   *district,
		VerificationMethod: models.VerifyByEmail,
		AccountVerified:    true,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		zap.S().Fatalw("failed to create admin", "error", err)
	}
	fmt.Printf("created %s as %s\n", addr, *role)
}
