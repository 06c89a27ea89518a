// Package index holds RepoMap, the in-memory store of FileAnalysis records
// and the secondary indexes/query cache spec.md section 4.4 describes.
// Concurrency follows spec.md section 5: a single sync.RWMutex guards
// everything, readers for lookups, writers for ingest/remove/cache
// mutation -- the same discipline the teacher applies to its master index
// (internal/indexing/master_index.go).
package index

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hbollon/go-edlib"

	"github.com/standardbeagle/repomap/internal/errs"
	"github.com/standardbeagle/repomap/internal/types"
)

// Metadata summarizes the index's current state.
type Metadata struct {
	TotalFiles        int
	TotalFunctions    int
	TotalStructs      int
	LastUpdate        time.Time
	MemoryUsageBytes  int64
	CacheHits         int64
	CacheMisses       int64
}

type cacheEntry struct {
	positions []int
	at        time.Time
}

// RepoMap is the thread-safe in-memory index over a repository's analyzed
// files.
type RepoMap struct {
	mu sync.RWMutex

	records  []types.FileAnalysis // stable insertion order; zero-value slots after remove
	byPath   map[string]int       // path -> index into records
	insertAt map[string]int64     // path -> monotonic insertion sequence, for FIFO eviction
	seq      int64

	byFunction map[string][]int
	byStruct   map[string][]int
	byImport   map[string][]int
	byExport   map[string][]int
	byLanguage map[string][]int

	callGraph map[string][]types.CallSite

	cache    map[string]cacheEntry
	cacheTTL time.Duration

	maxFiles int // 0 means unlimited

	metadata Metadata
}

func New(cacheTTL time.Duration, maxFiles int) *RepoMap {
	return &RepoMap{
		byPath:     make(map[string]int),
		insertAt:   make(map[string]int64),
		byFunction: make(map[string][]int),
		byStruct:   make(map[string][]int),
		byImport:   make(map[string][]int),
		byExport:   make(map[string][]int),
		byLanguage: make(map[string][]int),
		callGraph:  make(map[string][]types.CallSite),
		cache:      make(map[string]cacheEntry),
		cacheTTL:   cacheTTL,
		maxFiles:   maxFiles,
	}
}

// Ingest inserts or replaces the record for analysis.Path, rebuilding that
// record's secondary-index contributions and clearing the query cache.
func (r *RepoMap) Ingest(analysis types.FileAnalysis) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pos, ok := r.byPath[analysis.Path]; ok {
		r.removeIndexContributions(analysis.Path, pos)
		r.records[pos] = analysis
		r.addIndexContributions(analysis, pos)
	} else {
		pos := len(r.records)
		r.records = append(r.records, analysis)
		r.byPath[analysis.Path] = pos
		r.seq++
		r.insertAt[analysis.Path] = r.seq
		r.addIndexContributions(analysis, pos)
		r.enforceMaxFilesLocked()
	}

	r.recomputeMetadataLocked()
	r.invalidateCacheLocked()
}

// Remove deletes the record at path and all of its secondary-index
// contributions.
func (r *RepoMap) Remove(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(path)
}

func (r *RepoMap) removeLocked(path string) bool {
	pos, ok := r.byPath[path]
	if !ok {
		return false
	}
	r.removeIndexContributions(path, pos)
	r.records[pos] = types.FileAnalysis{}
	delete(r.byPath, path)
	delete(r.insertAt, path)
	r.recomputeMetadataLocked()
	r.invalidateCacheLocked()
	return true
}

// enforceMaxFilesLocked evicts the oldest-inserted record (FIFO) until the
// record count is within maxFiles. Caller holds the write lock.
func (r *RepoMap) enforceMaxFilesLocked() {
	if r.maxFiles <= 0 {
		return
	}
	for len(r.byPath) > r.maxFiles {
		oldestPath := ""
		var oldestSeq int64 = -1
		for path, seq := range r.insertAt {
			if oldestSeq == -1 || seq < oldestSeq {
				oldestSeq = seq
				oldestPath = path
			}
		}
		if oldestPath == "" {
			return
		}
		pos := r.byPath[oldestPath]
		r.removeIndexContributions(oldestPath, pos)
		r.records[pos] = types.FileAnalysis{}
		delete(r.byPath, oldestPath)
		delete(r.insertAt, oldestPath)
	}
}

func (r *RepoMap) addIndexContributions(fa types.FileAnalysis, pos int) {
	for _, fn := range fa.Functions {
		r.byFunction[fn.Name] = appendUnique(r.byFunction[fn.Name], pos)
	}
	for _, st := range fa.Structs {
		r.byStruct[st.Name] = appendUnique(r.byStruct[st.Name], pos)
	}
	for _, imp := range fa.Imports {
		r.byImport[imp.Module] = appendUnique(r.byImport[imp.Module], pos)
	}
	for _, exp := range fa.Exports {
		r.byExport[exp.Name] = appendUnique(r.byExport[exp.Name], pos)
	}
	if fa.Language != "" {
		r.byLanguage[fa.Language] = appendUnique(r.byLanguage[fa.Language], pos)
	}
	for _, call := range fa.Calls {
		site := types.CallSite{
			Callee:     call.Callee,
			CallerFile: fa.Path,
			Line:       call.Line,
			Column:     call.Column,
		}
		r.callGraph[call.Callee] = append(r.callGraph[call.Callee], site)
	}
}

func (r *RepoMap) removeIndexContributions(path string, pos int) {
	if pos < 0 || pos >= len(r.records) {
		return
	}
	fa := r.records[pos]
	if fa.Path != path {
		return
	}
	for _, fn := range fa.Functions {
		r.byFunction[fn.Name] = removeValue(r.byFunction[fn.Name], pos)
	}
	for _, st := range fa.Structs {
		r.byStruct[st.Name] = removeValue(r.byStruct[st.Name], pos)
	}
	for _, imp := range fa.Imports {
		r.byImport[imp.Module] = removeValue(r.byImport[imp.Module], pos)
	}
	for _, exp := range fa.Exports {
		r.byExport[exp.Name] = removeValue(r.byExport[exp.Name], pos)
	}
	if fa.Language != "" {
		r.byLanguage[fa.Language] = removeValue(r.byLanguage[fa.Language], pos)
	}
	for callee, sites := range r.callGraph {
		filtered := sites[:0]
		for _, s := range sites {
			if s.CallerFile != path {
				filtered = append(filtered, s)
			}
		}
		if len(filtered) == 0 {
			delete(r.callGraph, callee)
		} else {
			r.callGraph[callee] = filtered
		}
	}
}

func appendUnique(s []int, v int) []int {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

func removeValue(s []int, v int) []int {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

func (r *RepoMap) recomputeMetadataLocked() {
	var files, funcs, structs int
	var mem int64
	for _, fa := range r.records {
		if fa.Path == "" {
			continue
		}
		files++
		funcs += len(fa.Functions)
		structs += len(fa.Structs)
		mem += estimateSize(fa)
	}
	r.metadata.TotalFiles = files
	r.metadata.TotalFunctions = funcs
	r.metadata.TotalStructs = structs
	r.metadata.MemoryUsageBytes = mem
	r.metadata.LastUpdate = time.Now()
}

// estimateSize is a rough per-record byte cost, summed into
// Metadata.MemoryUsageBytes; it is an estimate, not an exact figure. The
// index enforces no memory ceiling: eviction happens only through maxFiles.
func estimateSize(fa types.FileAnalysis) int64 {
	size := int64(len(fa.Path)) + int64(len(fa.Language)) + 64
	for _, fn := range fa.Functions {
		size += int64(len(fn.Name)+len(fn.Receiver)+len(fn.ReturnType)) + 48
		for _, p := range fn.Params {
			size += int64(len(p.Name) + len(p.Type) + len(p.Default) + 24)
		}
	}
	for _, st := range fa.Structs {
		size += int64(len(st.Name)) + 32
		for _, f := range st.Fields {
			size += int64(len(f.Name)+len(f.Type)) + 16
		}
	}
	for _, imp := range fa.Imports {
		size += int64(len(imp.Module)+len(imp.Alias)) + 24
	}
	for _, exp := range fa.Exports {
		size += int64(len(exp.Name)) + 16
	}
	for _, c := range fa.Calls {
		size += int64(len(c.Callee)+len(c.Receiver)) + 16
	}
	return size
}

func (r *RepoMap) invalidateCacheLocked() {
	r.cache = make(map[string]cacheEntry)
}

// Metadata returns a snapshot of the index's current bookkeeping.
func (r *RepoMap) Metadata() Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metadata
}

// AnalysisByPath returns the current record for path, if indexed.
func (r *RepoMap) AnalysisByPath(path string) (types.FileAnalysis, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pos, ok := r.byPath[path]
	if !ok {
		return types.FileAnalysis{}, false
	}
	return r.records[pos], true
}

// FunctionMatch is one ranked function search hit.
type FunctionMatch struct {
	Function types.FunctionSignature
	File     string
}

// FindFunctions matches pattern against function names using spec.md
// section 4.4's syntax (substring / /regex/ / glob) and rank order (exact >
// prefix > substring > fuzzy), ties broken by insertion order.
func (r *RepoMap) FindFunctions(pattern string, limit int) ([]FunctionMatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := "fn:" + pattern
	if cached, ok := r.cacheLookupLocked(key); ok {
		return r.functionMatchesFromPositions(cached, pattern, limit), nil
	}

	positions, err := r.matchNamePositions(r.byFunction, pattern)
	if err != nil {
		return nil, err
	}
	r.cacheStoreLocked(key, positions)
	return r.functionMatchesFromPositions(positions, pattern, limit), nil
}

func (r *RepoMap) functionMatchesFromPositions(positions []int, pattern string, limit int) []FunctionMatch {
	var matches []FunctionMatch
	for _, pos := range positions {
		fa := r.records[pos]
		for _, fn := range fa.Functions {
			if nameMatches(fn.Name, pattern) {
				matches = append(matches, FunctionMatch{Function: fn, File: fa.Path})
			}
		}
	}
	rankMatches(matches, pattern, func(i int) string { return matches[i].Function.Name })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// StructMatch is one ranked struct search hit.
type StructMatch struct {
	Struct types.StructSignature
	File   string
}

func (r *RepoMap) FindStructs(pattern string, limit int) ([]StructMatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := "st:" + pattern
	if cached, ok := r.cacheLookupLocked(key); ok {
		return r.structMatchesFromPositions(cached, pattern, limit), nil
	}

	positions, err := r.matchNamePositions(r.byStruct, pattern)
	if err != nil {
		return nil, err
	}
	r.cacheStoreLocked(key, positions)
	return r.structMatchesFromPositions(positions, pattern, limit), nil
}

func (r *RepoMap) structMatchesFromPositions(positions []int, pattern string, limit int) []StructMatch {
	var matches []StructMatch
	for _, pos := range positions {
		fa := r.records[pos]
		for _, st := range fa.Structs {
			if nameMatches(st.Name, pattern) {
				matches = append(matches, StructMatch{Struct: st, File: fa.Path})
			}
		}
	}
	rankMatches(matches, pattern, func(i int) string { return matches[i].Struct.Name })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// matchNamePositions scans every secondary-index key against pattern and
// returns the union of record positions for matching keys, in ascending
// position order.
func (r *RepoMap) matchNamePositions(index map[string][]int, pattern string) ([]int, error) {
	var re *regexp.Regexp
	if strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") && len(pattern) > 1 {
		compiled, err := regexp.Compile(caseFoldedPattern(pattern[1 : len(pattern)-1]))
		if err != nil {
			return nil, errs.NewToolError("find", "invalid regex pattern: "+err.Error())
		}
		re = compiled
	}

	seen := make(map[int]bool)
	var positions []int
	for name, posList := range index {
		if re != nil {
			if !re.MatchString(name) {
				continue
			}
		} else if !nameMatches(name, pattern) {
			continue
		}
		for _, pos := range posList {
			if !seen[pos] {
				seen[pos] = true
				positions = append(positions, pos)
			}
		}
	}
	sort.Ints(positions)
	return positions, nil
}

// nameMatches implements the substring/regex/glob syntax against a single
// name (used both for candidate index-key filtering and for the final
// per-record entity match, since a record can hold multiple entities under
// one index key). Pattern-matching is case-sensitive unless pattern is
// entirely lower-case, in which case it falls back to case-insensitive
// matching against name (spec.md section 8, "Universal properties").
func nameMatches(name, pattern string) bool {
	if strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") && len(pattern) > 1 {
		re, err := regexp.Compile(caseFoldedPattern(pattern[1 : len(pattern)-1]))
		if err != nil {
			return false
		}
		return re.MatchString(name)
	}
	if isAllLower(pattern) {
		name = strings.ToLower(name)
	}
	if strings.ContainsAny(pattern, "*?") {
		matched, _ := regexp.MatchString(globToRegex(pattern), name)
		return matched
	}
	return strings.Contains(name, pattern)
}

// isAllLower reports whether pattern contains no upper-case letters, the
// trigger for the case-insensitive fallback.
func isAllLower(pattern string) bool {
	return pattern == strings.ToLower(pattern)
}

// caseFoldedPattern prefixes a regex body with Go regexp's inline
// case-insensitive flag when the body is entirely lower-case.
func caseFoldedPattern(body string) string {
	if isAllLower(body) {
		return "(?i)" + body
	}
	return body
}

func globToRegex(glob string) string {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}

// rankMatches sorts matches into exact > prefix > substring > fuzzy tiers
// against pattern, preserving relative insertion order within a tier (Go's
// sort.SliceStable guarantees this).
func rankMatches[T any](matches []T, pattern string, nameOf func(i int) string) {
	tier := func(i int) int {
		name := nameOf(i)
		switch {
		case name == pattern:
			return 0
		case strings.HasPrefix(name, pattern):
			return 1
		case strings.Contains(name, pattern):
			return 2
		default:
			return 3
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return tier(i) < tier(j) })
}

// DependenciesOf returns the import module paths and export names declared
// in path.
func (r *RepoMap) DependenciesOf(path string) ([]types.ImportStatement, []types.ExportStatement, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pos, ok := r.byPath[path]
	if !ok {
		return nil, nil, false
	}
	fa := r.records[pos]
	return fa.Imports, fa.Exports, true
}

// CallersOf returns all CallSites for callee, sorted by file then line.
func (r *RepoMap) CallersOf(callee string, limit int) []types.CallSite {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sites, ok := r.callGraph[callee]
	if !ok {
		return nil
	}
	out := make([]types.CallSite, len(sites))
	copy(out, sites)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CallerFile != out[j].CallerFile {
			return out[i].CallerFile < out[j].CallerFile
		}
		return out[i].Line < out[j].Line
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// FilesByLanguage returns every record whose Language equals lang.
func (r *RepoMap) FilesByLanguage(lang string) []types.FileAnalysis {
	r.mu.RLock()
	defer r.mu.RUnlock()
	positions := r.byLanguage[lang]
	out := make([]types.FileAnalysis, 0, len(positions))
	for _, pos := range positions {
		out = append(out, r.records[pos])
	}
	return out
}

// FuzzyMatch is one ranked fuzzy_search hit.
type FuzzyMatch struct {
	Name  string
	Kind  types.ExportKind
	File  string
	Score float32
}

// FuzzySearch ranks every function/struct name by edit-distance similarity
// to q using go-edlib's Jaro-Winkler metric, the same algorithm the teacher
// selects by default in internal/semantic/fuzzy_matcher.go.
func (r *RepoMap) FuzzySearch(q string, limit int) []FuzzyMatch {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []FuzzyMatch
	for name, positions := range r.byFunction {
		score := similarity(q, name)
		for _, pos := range positions {
			out = append(out, FuzzyMatch{Name: name, Kind: types.ExportKindFunction, File: r.records[pos].Path, Score: score})
		}
	}
	for name, positions := range r.byStruct {
		score := similarity(q, name)
		for _, pos := range positions {
			out = append(out, FuzzyMatch{Name: name, Kind: types.ExportKindType, File: r.records[pos].Path, Score: score})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func similarity(a, b string) float32 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	score, err := edlib.StringsSimilarity(a, b, edlib.JaroWinkler)
	if err != nil {
		return 0.0
	}
	return score
}

// TreeSummary is the repository_tree() projection.
type TreeSummary struct {
	FilesByLanguage map[string]int
	TotalEntities   int
	Paths           []string
}

func (r *RepoMap) RepositoryTree(includeCounts bool) TreeSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summary := TreeSummary{FilesByLanguage: make(map[string]int)}
	for _, fa := range r.records {
		if fa.Path == "" {
			continue
		}
		summary.Paths = append(summary.Paths, fa.Path)
		if includeCounts {
			summary.FilesByLanguage[fa.Language]++
			summary.TotalEntities += len(fa.Functions) + len(fa.Structs)
		}
	}
	sort.Strings(summary.Paths)
	return summary
}

func (r *RepoMap) cacheLookupLocked(key string) ([]int, bool) {
	entry, ok := r.cache[key]
	if !ok {
		r.metadata.CacheMisses++
		return nil, false
	}
	if time.Since(entry.at) > r.cacheTTL {
		delete(r.cache, key)
		r.metadata.CacheMisses++
		return nil, false
	}
	r.metadata.CacheHits++
	return entry.positions, true
}

func (r *RepoMap) cacheStoreLocked(key string, positions []int) {
	r.cache[key] = cacheEntry{positions: positions, at: time.Now()}
}
