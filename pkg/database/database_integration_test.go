//go:build integration

package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/diagnosis/luxsuv-reservations/pkg/config"
	"github.com/diagnosis/luxsuv-reservations/pkg/database"
	"github.com/diagnosis/luxsuv-reservations/pkg/docstore"
	"github.com/diagnosis/luxsuv-reservations/pkg/repository"
)

func TestDatabase(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Document Store Integration Suite")
}

type account struct {
	repository.Base
	Email string `json:"email"`
	Plan  string `json:"plan"`
	Seats int    `json:"seats"`
}

var (
	ctx       context.Context
	container testcontainers.Container
	pool      *pgxpool.Pool
)

var _ = BeforeSuite(func() {
	ctx = context.Background()

	pg, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("reservations_test"),
		postgres.WithUsername("luxsuv"),
		postgres.WithPassword("luxsuv"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	Expect(err).NotTo(HaveOccurred())
	container = pg

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())

	pool, err = database.Connect(ctx, config.DatabaseConfig{
		URL:             connStr,
		MaxConns:        4,
		MinConns:        1,
		MaxLifetime:     time.Hour,
		ConnectAttempts: 3,
	})
	Expect(err).NotTo(HaveOccurred())
	Expect(database.Migrate(ctx, pool)).To(Succeed())
})

var _ = AfterSuite(func() {
	if pool != nil {
		pool.Close()
	}
	if container != nil {
		_ = container.Terminate(ctx)
	}
})

var _ = Describe("Migrate", func() {
	It("is idempotent", func() {
		Expect(database.Migrate(ctx, pool)).To(Succeed())
	})
})

var _ = Describe("Repository over Postgres", func() {
	var repo *repository.Repository[account, *account]

	BeforeEach(func() {
		_, err := pool.Exec(ctx, "TRUNCATE users")
		Expect(err).NotTo(HaveOccurred())
		repo = repository.New[account](docstore.NewPostgresCollection(pool, "users"))
	})

	It("creates and reads back a document", func() {
		created, err := repo.Create(ctx, account{Email: "a@x.io", Plan: "free", Seats: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(created.ID).NotTo(BeEmpty())

		got, err := repo.FindOne(ctx, repository.ByID(created.ID))
		Expect(err).NotTo(HaveOccurred())
		Expect(*got).To(Equal(*created))
	})

	It("does not store the identifier inside the document", func() {
		created, err := repo.Create(ctx, account{Email: "a@x.io"})
		Expect(err).NotTo(HaveOccurred())

		var hasID bool
		err = pool.QueryRow(ctx, "SELECT doc ? '_id' FROM users WHERE id = $1", created.ID).Scan(&hasID)
		Expect(err).NotTo(HaveOccurred())
		Expect(hasID).To(BeFalse())
	})

	It("rejects a second document with the same email", func() {
		_, err := repo.Create(ctx, account{Email: "dup@x.io"})
		Expect(err).NotTo(HaveOccurred())

		_, err = repo.Create(ctx, account{Email: "dup@x.io"})
		Expect(err).To(MatchError(repository.ErrConstraintViolation))
	})

	It("matches by field containment in insertion order", func() {
		first, err := repo.Create(ctx, account{Email: "1@x.io", Plan: "pro"})
		Expect(err).NotTo(HaveOccurred())
		_, err = repo.Create(ctx, account{Email: "2@x.io", Plan: "free"})
		Expect(err).NotTo(HaveOccurred())
		_, err = repo.Create(ctx, account{Email: "3@x.io", Plan: "pro"})
		Expect(err).NotTo(HaveOccurred())

		pros, err := repo.Find(ctx, repository.Filter{"plan": "pro"})
		Expect(err).NotTo(HaveOccurred())
		Expect(pros).To(HaveLen(2))
		Expect(pros[0].Email).To(Equal("1@x.io"))
		Expect(pros[1].Email).To(Equal("3@x.io"))

		one, err := repo.FindOne(ctx, repository.Filter{"plan": "pro"})
		Expect(err).NotTo(HaveOccurred())
		Expect(one.ID).To(Equal(first.ID))

		none, err := repo.Find(ctx, repository.Filter{"plan": "enterprise"})
		Expect(err).NotTo(HaveOccurred())
		Expect(none).To(BeEmpty())
	})

	It("merges patches and returns the updated document", func() {
		created, err := repo.Create(ctx, account{Email: "u@x.io", Plan: "free", Seats: 1})
		Expect(err).NotTo(HaveOccurred())

		updated, err := repo.FindOneAndUpdate(ctx, repository.ByID(created.ID), repository.Patch{"seats": 5})
		Expect(err).NotTo(HaveOccurred())
		Expect(updated.Seats).To(Equal(5))
		Expect(updated.Plan).To(Equal("free"))

		_, err = repo.FindOneAndUpdate(ctx, repository.ByID("missing"), repository.Patch{"seats": 2})
		Expect(err).To(MatchError(repository.ErrNotFound))
	})

	It("updates a document found by email and no longer finds the old email", func() {
		created, err := repo.Create(ctx, account{Email: "a@x.com", Plan: "free"})
		Expect(err).NotTo(HaveOccurred())

		updated, err := repo.FindOneAndUpdate(ctx, repository.Filter{"email": "a@x.com"}, repository.Patch{"email": "b@x.com"})
		Expect(err).NotTo(HaveOccurred())
		Expect(updated.ID).To(Equal(created.ID))
		Expect(updated.Email).To(Equal("b@x.com"))
		Expect(updated.Plan).To(Equal("free"))

		_, err = repo.FindOne(ctx, repository.Filter{"email": "a@x.com"})
		Expect(err).To(MatchError(repository.ErrNotFound))

		got, err := repo.FindOne(ctx, repository.Filter{"email": "b@x.com"})
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(created.ID))
	})

	It("rejects an update onto an email another document holds", func() {
		_, err := repo.Create(ctx, account{Email: "b@x.com"})
		Expect(err).NotTo(HaveOccurred())
		other, err := repo.Create(ctx, account{Email: "c@x.com"})
		Expect(err).NotTo(HaveOccurred())

		_, err = repo.FindOneAndUpdate(ctx, repository.ByID(other.ID), repository.Patch{"email": "b@x.com"})
		Expect(err).To(MatchError(repository.ErrConstraintViolation))

		unchanged, err := repo.FindOne(ctx, repository.ByID(other.ID))
		Expect(err).NotTo(HaveOccurred())
		Expect(unchanged.Email).To(Equal("c@x.com"))
	})

	It("deletes once and then reports nothing", func() {
		created, err := repo.Create(ctx, account{Email: "d@x.io"})
		Expect(err).NotTo(HaveOccurred())

		deleted, err := repo.FindOneAndDelete(ctx, repository.ByID(created.ID))
		Expect(err).NotTo(HaveOccurred())
		Expect(deleted.ID).To(Equal(created.ID))

		again, err := repo.FindOneAndDelete(ctx, repository.ByID(created.ID))
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(BeNil())
	})
})
