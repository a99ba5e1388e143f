package reconciliation

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// CatalogReader vista de catálogo (tallas y colores declarados por producto).
type CatalogReader interface {
	ListDeclaredVariants(ctx context.Context) ([]entity.DeclaredVariants, error)
}

// RecordStore almacén secundario por variante.
type RecordStore interface {
	List(ctx context.Context) ([]*entity.VariantRecord, error)
	DeleteByIDs(ctx context.Context, ids []string) (int, error)
}

// Job barrido best-effort que elimina los registros por variante huérfanos: aquellos cuyo
// (producto, talla, color) ya no está entre las tallas × colores declarados del producto.
// Es convergente e idempotente; solo borra, nunca recrea.
type Job struct {
	catalog CatalogReader
	records RecordStore
	log     *logger.Logger
	now     func() time.Time
}

// NewJob construye el job.
func NewJob(catalog CatalogReader, records RecordStore, log *logger.Logger) *Job {
	if log == nil {
		log = logger.Nop()
	}
	return &Job{
		catalog: catalog,
		records: records,
		log:     log.Component("reconciliation"),
		now:     time.Now,
	}
}

// Result resumen de una pasada. Failed = OrphansFound - OrphansDeleted cuando el borrado por lote
// fue parcial; no se reintenta registro por registro.
type Result struct {
	Scanned        int
	OrphansFound   int
	OrphansDeleted int
	Failed         int
	Err            error
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Run ejecuta una pasada. Nunca devuelve error al llamador: los fallos quedan en Result y en el log.
func (j *Job) Run(ctx context.Context) Result {
	res := Result{StartedAt: j.now()}

	// Primero los registros y después el catálogo: un par declarado entre ambas lecturas sigue
	// siendo válido y un registro creado después del escaneo nunca entra en el lote.
	records, err := j.records.List(ctx)
	if err != nil {
		res.Err = err
		j.log.Error().Err(err).Msg("no se pudieron listar los registros por variante")
		res.FinishedAt = j.now()
		return res
	}

	declared, err := j.catalog.ListDeclaredVariants(ctx)
	if err != nil {
		res.Err = err
		j.log.Error().Err(err).Msg("no se pudo leer el catálogo; reconciliación omitida")
		res.FinishedAt = j.now()
		return res
	}
	valid := make(map[entity.VariantKey]struct{})
	for _, d := range declared {
		for _, s := range d.Sizes {
			for _, c := range d.Colors {
				valid[entity.VariantKey{ProductID: d.ProductID, Size: s, Color: c}] = struct{}{}
			}
		}
	}

	res.Scanned = len(records)

	// Se borra por ID, nunca por par.
	var orphanIDs []string
	for _, r := range records {
		if _, ok := valid[r.Key()]; ok {
			continue
		}
		orphanIDs = append(orphanIDs, r.ID)
		j.log.Debug().Str("record_id", r.ID).Str("product_id", r.ProductID).Str("size", r.Size).Str("color", r.Color).Msg("registro huérfano")
	}
	res.OrphansFound = len(orphanIDs)

	if len(orphanIDs) > 0 {
		deleted, err := j.records.DeleteByIDs(ctx, orphanIDs)
		res.OrphansDeleted = deleted
		res.Failed = res.OrphansFound - deleted
		if err != nil {
			res.Err = err
			j.log.Error().Err(err).Int("attempted", res.OrphansFound).Int("deleted", deleted).Msg("borrado de huérfanos parcial")
		}
	}

	res.FinishedAt = j.now()
	j.log.Info().
		Int("scanned", res.Scanned).
		Int("orphans_found", res.OrphansFound).
		Int("orphans_deleted", res.OrphansDeleted).
		Int("failed", res.Failed).
		Dur("elapsed", res.FinishedAt.Sub(res.StartedAt)).
		Msg("reconciliación terminada")
	return res
}

// ToResponse adapta el resumen a la salida HTTP/CLI.
func (r Result) ToResponse() dto.ReconciliationResponse {
	out := dto.ReconciliationResponse{
		Scanned:        r.Scanned,
		OrphansFound:   r.OrphansFound,
		OrphansDeleted: r.OrphansDeleted,
		Failed:         r.Failed,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}
