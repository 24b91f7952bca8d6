package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/veriface/veriface/internal/attendance"
	"github.com/veriface/veriface/internal/capture"
	"github.com/veriface/veriface/internal/config"
	"github.com/veriface/veriface/internal/identity"
	"github.com/veriface/veriface/internal/recognize"
	"github.com/veriface/veriface/internal/session"
	"github.com/veriface/veriface/internal/store"
)

// allowedFromEnv parses the ALLOWED_IDENTITIES environment variable
// (comma-separated display names) into the initial allow list.
func allowedFromEnv() []string {
	env := os.Getenv("ALLOWED_IDENTITIES")
	if env == "" {
		return nil
	}
	var names []string
	for _, name := range strings.Split(env, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// buildClassifier loads the full training corpus from the store and indexes
// it. An empty corpus is not an error; the classifier just reports not ready
// until the first enrollment completes.
func buildClassifier(ctx context.Context, st *store.Store, cfg *config.Config) (*recognize.KNN, error) {
	knn := recognize.NewKNN(cfg.Tuning.Engine.NeighborCount)
	labels, vectors, err := st.LoadTrainingSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading training set: %w", err)
	}
	if len(labels) == 0 {
		log.Printf("no enrolled face samples found, verification unavailable until enrollment")
		return knn, nil
	}
	if err := knn.Train(labels, vectors); err != nil {
		return nil, fmt.Errorf("indexing training set: %w", err)
	}
	log.Printf("face index ready with %d samples", knn.Count())
	return knn, nil
}

// retrain rebuilds the classifier index from the store. Used after an
// enrollment batch lands.
func retrain(st *store.Store, knn *recognize.KNN) {
	labels, vectors, err := st.LoadTrainingSet(context.Background())
	if err != nil {
		log.Printf("reloading training set: %v", err)
		return
	}
	if err := knn.Train(labels, vectors); err != nil {
		log.Printf("reindexing training set: %v", err)
		return
	}
	log.Printf("face index rebuilt with %d samples", knn.Count())
}

// buildPolicy creates the access policy backed by the roster's role column
// and seeded from ALLOWED_IDENTITIES.
func buildPolicy(st *store.Store) *attendance.AccessPolicy {
	roles := func(name string) (identity.Role, bool) {
		role, ok, err := st.Role(context.Background(), name)
		if err != nil {
			log.Printf("role lookup for %q: %v", name, err)
			return identity.RoleUser, false
		}
		return role, ok
	}
	return attendance.NewAccessPolicy(roles, allowedFromEnv())
}

// buildSupervisor wires the camera, the detector and the collaborators into
// a session supervisor. The returned cleanup releases the cascade.
func buildSupervisor(cfg *config.Config, st *store.Store, knn *recognize.KNN, ledger *attendance.Ledger, policy *attendance.AccessPolicy) (*session.Supervisor, func(), error) {
	cascadePath := filepath.Join(cfg.Data.Dir, cfg.Data.CascadeFile)
	cascade, err := capture.LoadCascade(cascadePath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading detection cascade %s: %w", cascadePath, err)
	}

	sup := session.NewSupervisor(session.Deps{
		Opener:     capture.WebcamOpener(cfg.Camera),
		Locator:    cascade,
		Classifier: knn,
		Ledger:     ledger,
		Policy:     policy,
		Saver:      st,
		Tuning:     cfg.Tuning,
		OnEnrolled: func() { retrain(st, knn) },
	})

	cleanup := func() {
		if err := cascade.Close(); err != nil {
			log.Printf("closing cascade: %v", err)
		}
	}
	return sup, cleanup, nil
}
