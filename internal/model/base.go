package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (r *Region) BeforeCreate(*gorm.DB) error        { assignID(&r.ID); return nil }
func (d *District) BeforeCreate(*gorm.DB) error      { assignID(&d.ID); return nil }
func (t *ContractType) BeforeCreate(*gorm.DB) error  { assignID(&t.ID); return nil }
func (w *Work) BeforeCreate(*gorm.DB) error          { assignID(&w.ID); return nil }
func (i *Implementator) BeforeCreate(*gorm.DB) error { assignID(&i.ID); return nil }
func (c *Contract) BeforeCreate(*gorm.DB) error      { assignID(&c.ID); return nil }
func (k *SubscriberKit) BeforeCreate(*gorm.DB) error { assignID(&k.ID); return nil }
