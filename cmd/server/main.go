package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"brickyard/internal/persistence/indexdb"
	persistlog "brickyard/internal/persistence/log"
	"brickyard/internal/persistence/snapshot"
	"brickyard/internal/sim/catalogs"
	"brickyard/internal/sim/engine"
	"brickyard/internal/sim/tuning"
	"brickyard/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		projectID  = flag.String("project", "project_1", "project id")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite save/edit index")

		projPath   = flag.String("snapshot", "", "path to project snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest", true, "load the latest saved project if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	projectDir := filepath.Join(*dataDir, "projects", *projectID)
	_ = os.MkdirAll(filepath.Join(projectDir, "saves"), 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Default()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(projectDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
	}

	sess := engine.NewSession(cats, tune)

	toLoad := strings.TrimSpace(*projPath)
	if toLoad == "" && *loadLatest {
		toLoad = latestSave(projectDir, idx, *projectID)
	}
	if toLoad != "" {
		proj, err := snapshot.ReadProject(toLoad)
		if err != nil {
			logger.Fatalf("read project: %v", err)
		}
		if proj.Header.ProjectID != "" && proj.Header.ProjectID != *projectID {
			logger.Fatalf("project id mismatch: flag=%s file=%s", *projectID, proj.Header.ProjectID)
		}
		pieces, err := projectPieces(proj)
		if err != nil {
			logger.Fatalf("load project: %v", err)
		}
		sess.LoadPieces(pieces)
		sess.SetState(engine.SessionState{
			CurType:   proj.SelectedType,
			CurRot:    proj.SelectedRot,
			CurColor:  proj.SelectedColor,
			AnchorIdx: proj.SelectedAnchor,
		})
		logger.Printf("resumed project=%s rev=%d pieces=%d", filepath.Base(toLoad), proj.Header.Rev, len(pieces))
	}

	ctx, cancel := signalContext()
	defer cancel()

	editLog := persistlog.NewEditLogger(projectDir)
	defer editLog.Close()

	hooks := ws.Hooks{
		Save: func(rev uint64, pieces []engine.Piece, st engine.SessionState) error {
			path := filepath.Join(projectDir, "saves", fmt.Sprintf("%d.proj.zst", rev))
			proj := buildProject(*projectID, rev, pieces, st)
			if err := snapshot.WriteProject(path, proj); err != nil {
				return err
			}
			if idx != nil {
				idx.RecordSave(indexdb.SaveRow{
					ProjectID: *projectID,
					Rev:       rev,
					Path:      path,
					Pieces:    len(pieces),
				})
			}
			logger.Printf("saved rev=%d pieces=%d", rev, len(pieces))
			return nil
		},
		OnEdit: func(op string, rev uint64, sessionID string) {
			entry := persistlog.EditEntry{Rev: rev, Op: op, Session: sessionID, AtUnix: time.Now().Unix()}
			if err := editLog.WriteEdit(entry); err != nil {
				logger.Printf("edit log: %v", err)
			}
			if idx != nil {
				idx.RecordEdit(indexdb.EditRow{ProjectID: *projectID, Rev: rev, Op: op, Session: sessionID, AtUnix: entry.AtUnix})
			}
		},
	}

	srv := ws.NewServer(sess, cats, tune, *projectID, hooks, logger)
	go srv.Run(ctx)

	// Autosave ticker. The final save on shutdown runs after the http server
	// stops taking commands.
	go func() {
		t := time.NewTicker(time.Duration(tune.AutosaveEverySec) * time.Second)
		defer t.Stop()
		lastRev := sess.Rev()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				var rev uint64
				_ = srv.Do(ctx, func(s *engine.Session) { rev = s.Rev() })
				if rev == lastRev {
					continue
				}
				if err := srv.SaveNow(ctx); err != nil {
					logger.Printf("autosave: %v", err)
					continue
				}
				lastRev = rev
			}
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		var rev uint64
		var pieces int
		_ = srv.Do(r.Context(), func(s *engine.Session) {
			rev = s.Rev()
			pieces = s.World().Len()
		})
		fmt.Fprintf(rw, "# HELP brickyard_project_rev Current committed revision.\n")
		fmt.Fprintf(rw, "# TYPE brickyard_project_rev gauge\n")
		fmt.Fprintf(rw, "brickyard_project_rev{project=%q} %d\n", *projectID, rev)
		fmt.Fprintf(rw, "# HELP brickyard_project_pieces Pieces in the committed world.\n")
		fmt.Fprintf(rw, "# TYPE brickyard_project_pieces gauge\n")
		fmt.Fprintf(rw, "brickyard_project_pieces{project=%q} %d\n", *projectID, pieces)
	})
	if envBool("BY_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", srv.Handler())

	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = httpSrv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	// Best-effort final save; the session loop may already be stopped.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	go srv.Run(ctx2)
	if err := srv.SaveNow(ctx2); err != nil {
		logger.Printf("final save: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// latestSave prefers the index db, falling back to a directory scan when the
// db is disabled or empty.
func latestSave(projectDir string, idx *indexdb.SQLiteIndex, projectID string) string {
	if idx != nil {
		if row, ok, err := idx.LatestSave(projectID); err == nil && ok {
			if _, statErr := os.Stat(row.Path); statErr == nil {
				return row.Path
			}
		}
	}
	dir := filepath.Join(projectDir, "saves")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestRev uint64
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".proj.zst") {
			continue
		}
		var rev uint64
		if _, err := fmt.Sscanf(strings.TrimSuffix(e.Name(), ".proj.zst"), "%d", &rev); err != nil {
			continue
		}
		if best == "" || rev > bestRev {
			bestRev = rev
			best = filepath.Join(dir, e.Name())
		}
	}
	return best
}

func buildProject(projectID string, rev uint64, pieces []engine.Piece, st engine.SessionState) snapshot.ProjectV1 {
	proj := snapshot.ProjectV1{
		Header: snapshot.Header{
			Version:   1,
			ProjectID: projectID,
			Rev:       rev,
			SavedUnix: time.Now().Unix(),
		},
		SelectedType:   st.CurType,
		SelectedRot:    st.CurRot,
		SelectedColor:  st.CurColor,
		SelectedAnchor: st.AnchorIdx,
	}
	proj.Pieces = make([]snapshot.PieceV1, 0, len(pieces))
	for _, p := range pieces {
		proj.Pieces = append(proj.Pieces, snapshot.PieceV1{
			ID:          p.ID,
			Type:        p.Type,
			Pos:         [3]float64{p.Pos.X, p.Pos.Y, p.Pos.Z},
			Rotation:    p.Rotation,
			Orientation: p.Orientation.String(),
			Color:       p.Color,
		})
	}
	return proj
}

func projectPieces(proj snapshot.ProjectV1) ([]engine.Piece, error) {
	pieces := make([]engine.Piece, 0, len(proj.Pieces))
	for _, pv := range proj.Pieces {
		orient := engine.OrientUp
		if pv.Orientation != "" {
			o, err := engine.ParseOrientation(pv.Orientation)
			if err != nil {
				return nil, fmt.Errorf("piece %s: %w", pv.ID, err)
			}
			orient = o
		}
		pieces = append(pieces, engine.Piece{
			ID:          pv.ID,
			Type:        pv.Type,
			Pos:         engine.Vec3{X: pv.Pos[0], Y: pv.Pos[1], Z: pv.Pos[2]},
			Rotation:    pv.Rotation,
			Orientation: orient,
			Color:       pv.Color,
		})
	}
	return pieces, nil
}

func envBool(name string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}
