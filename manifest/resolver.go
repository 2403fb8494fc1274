package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ResolvedDep represents a dependency that has been resolved to a local path.
type ResolvedDep struct {
	Name        string     // dependency name
	Dependency  Dependency // as declared by the manifest that named it
	LocalPath   string     // local filesystem path
	IncludeDirs []string   // directories searched for its .nss files
	Manifest    *Manifest  // the dependency's own manifest (may be nil)
}

// Resolver manages dependency resolution.
type Resolver struct {
	manifest *Manifest
	lock     *LockFile
}

// NewResolver creates a new dependency resolver.
func NewResolver(m *Manifest) *Resolver {
	return &Resolver{manifest: m}
}

// Resolve resolves all dependencies and returns them in load order
// (dependencies before dependents).
func (r *Resolver) Resolve() ([]ResolvedDep, error) {
	// Read existing lock file
	lock, err := ReadLock(r.manifest.LockFilePath())
	if err != nil {
		return nil, fmt.Errorf("reading lock file: %w", err)
	}
	r.lock = lock

	if len(r.manifest.Dependencies) == 0 {
		return nil, nil
	}

	// Ensure .ncs/deps directory exists
	if err := os.MkdirAll(r.manifest.DepsDir(), 0755); err != nil {
		return nil, fmt.Errorf("creating deps dir: %w", err)
	}

	resolved := make(map[string]*ResolvedDep)
	order, err := r.resolveAll(r.manifest, resolved)
	if err != nil {
		return nil, err
	}

	if err := r.writeLock(order); err != nil {
		return nil, fmt.Errorf("writing lock file: %w", err)
	}
	return order, nil
}

// resolveAll resolves the dependencies declared by owner recursively, in
// name order. A name already resolved is not visited again, so the first
// declaration wins.
func (r *Resolver) resolveAll(owner *Manifest, resolved map[string]*ResolvedDep) ([]ResolvedDep, error) {
	names := make([]string, 0, len(owner.Dependencies))
	for name := range owner.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	var order []ResolvedDep
	for _, name := range names {
		if _, ok := resolved[name]; ok {
			continue
		}
		if err := ValidateDependencyName(name); err != nil {
			return nil, err
		}

		rd, err := r.resolveOne(owner, name, owner.Dependencies[name])
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", name, err)
		}
		resolved[name] = rd

		// Transitive dependencies load first
		if rd.Manifest != nil && len(rd.Manifest.Dependencies) > 0 {
			transitive, err := r.resolveAll(rd.Manifest, resolved)
			if err != nil {
				return nil, err
			}
			order = append(order, transitive...)
		}
		order = append(order, *rd)
	}
	return order, nil
}

// resolveOne resolves a single dependency. Relative paths are taken from
// the directory of the manifest that declared it.
func (r *Resolver) resolveOne(owner *Manifest, name string, dep Dependency) (*ResolvedDep, error) {
	var localPath string
	switch {
	case dep.Path != "":
		p := dep.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(owner.Dir, p)
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("invalid path %q: %w", dep.Path, err)
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, fmt.Errorf("local dependency %q not found at %s: %w", name, abs, err)
		}
		localPath = abs

	case dep.Git != "":
		localPath = filepath.Join(r.manifest.DepsDir(), name)
		if err := r.fetchGit(name, dep, localPath); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("dependency %q has no git or path specified", name)
	}

	rd := &ResolvedDep{Name: name, Dependency: dep, LocalPath: localPath}
	if _, err := os.Stat(filepath.Join(localPath, FileName)); err == nil {
		depManifest, err := Load(localPath)
		if err != nil {
			return nil, err
		}
		rd.Manifest = depManifest
		rd.IncludeDirs = depManifest.IncludeDirPaths()
	} else {
		rd.IncludeDirs = []string{localPath}
	}
	return rd, nil
}

// fetchGit clones a git dependency, or refreshes an existing clone whose
// pin changed, and checks out the pinned revision.
func (r *Resolver) fetchGit(name string, dep Dependency, dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.Infof("cloning %s from %s", name, dep.Git)
		if err := gitClone(dep.Git, dir); err != nil {
			return err
		}
	} else {
		locked := r.lock.FindLockedDep(name)
		if locked != nil && locked.Tag == dep.Tag && locked.Branch == dep.Branch &&
			(dep.Rev == "" || locked.Commit == dep.Rev) {
			// Already at the pinned version, skip fetch
		} else {
			log.Infof("fetching %s", name)
			if err := gitFetch(dir); err != nil {
				return err
			}
		}
		if clean, err := gitIsClean(dir); err == nil && !clean {
			log.Warningf("dependency %s has local changes in %s; they will be overwritten", name, dir)
		}
	}

	if rev := gitRevision(dep); rev != "" {
		if err := gitCheckout(dir, rev); err != nil {
			return err
		}
	}
	return nil
}

// writeLock writes the resolved dependencies to the lock file.
func (r *Resolver) writeLock(order []ResolvedDep) error {
	lf := &LockFile{}
	for _, rd := range order {
		ld := LockedDep{Name: rd.Name}
		if rd.Dependency.Git != "" {
			ld.Git = rd.Dependency.Git
			ld.Tag = rd.Dependency.Tag
			ld.Branch = rd.Dependency.Branch
			if commit, err := gitCurrentCommit(rd.LocalPath); err == nil {
				ld.Commit = commit
			}
		} else {
			ld.Path = rd.Dependency.Path
		}
		lf.Deps = append(lf.Deps, ld)
	}
	return WriteLock(r.manifest.LockFilePath(), lf)
}
