package IMDF

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func cloneStrPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBoolPtr(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneGeometry(g *geojson.Geometry) *geojson.Geometry {
	if g == nil {
		return nil
	}
	return geojson.NewGeometry(orb.Clone(g.Geometry()))
}

func cloneDoor(d *Door) *Door {
	if d == nil {
		return nil
	}
	return &Door{
		Automatic: cloneBoolPtr(d.Automatic),
		Material:  cloneStrPtr(d.Material),
		Type:      cloneStrPtr(d.Type),
	}
}

func (p *AddressProps) CloneProps() Props {
	if p == nil {
		return nil
	}
	out := *p
	out.Unit = cloneStrPtr(p.Unit)
	out.Province = cloneStrPtr(p.Province)
	out.PostalCode = cloneStrPtr(p.PostalCode)
	out.PostalCodeExt = cloneStrPtr(p.PostalCodeExt)
	out.PostalCodeVanity = cloneStrPtr(p.PostalCodeVanity)
	return &out
}

func (p *VenueProps) CloneProps() Props {
	if p == nil {
		return nil
	}
	out := *p
	out.Restriction = cloneStrPtr(p.Restriction)
	out.Name = p.Name.Clone()
	out.AltName = p.AltName.Clone()
	out.Hours = cloneStrPtr(p.Hours)
	out.Phone = cloneStrPtr(p.Phone)
	out.Website = cloneStrPtr(p.Website)
	out.DisplayPoint = cloneGeometry(p.DisplayPoint)
	out.AddressID = cloneStrPtr(p.AddressID)
	return &out
}

func (p *BuildingProps) CloneProps() Props {
	if p == nil {
		return nil
	}
	out := *p
	out.Name = p.Name.Clone()
	out.AltName = p.AltName.Clone()
	out.Restriction = cloneStrPtr(p.Restriction)
	out.DisplayPoint = cloneGeometry(p.DisplayPoint)
	out.AddressID = cloneStrPtr(p.AddressID)
	return &out
}

func (p *FootprintProps) CloneProps() Props {
	if p == nil {
		return nil
	}
	out := *p
	out.Name = p.Name.Clone()
	out.BuildingIDs = cloneStrings(p.BuildingIDs)
	out.Ordinal = cloneIntPtr(p.Ordinal)
	return &out
}

func (p *LevelProps) CloneProps() Props {
	if p == nil {
		return nil
	}
	out := *p
	out.Restriction = cloneStrPtr(p.Restriction)
	out.Outdoor = cloneBoolPtr(p.Outdoor)
	out.Ordinal = cloneIntPtr(p.Ordinal)
	out.Name = p.Name.Clone()
	out.ShortName = p.ShortName.Clone()
	out.DisplayPoint = cloneGeometry(p.DisplayPoint)
	out.AddressID = cloneStrPtr(p.AddressID)
	out.BuildingIDs = cloneStrings(p.BuildingIDs)
	out.SourceFiles = cloneStrings(p.SourceFiles)
	return &out
}

func (p *UnitProps) CloneProps() Props {
	if p == nil {
		return nil
	}
	out := *p
	out.Restriction = cloneStrPtr(p.Restriction)
	out.Accessibility = cloneStrings(p.Accessibility)
	out.Name = p.Name.Clone()
	out.AltName = p.AltName.Clone()
	out.DisplayPoint = cloneGeometry(p.DisplayPoint)
	return &out
}

func (p *OpeningProps) CloneProps() Props {
	if p == nil {
		return nil
	}
	out := *p
	out.Accessibility = cloneStrings(p.Accessibility)
	out.AccessControl = cloneStrings(p.AccessControl)
	out.Door = cloneDoor(p.Door)
	out.Name = p.Name.Clone()
	out.AltName = p.AltName.Clone()
	out.DisplayPoint = cloneGeometry(p.DisplayPoint)
	return &out
}

func (p *FixtureProps) CloneProps() Props {
	if p == nil {
		return nil
	}
	out := *p
	out.Name = p.Name.Clone()
	out.AltName = p.AltName.Clone()
	out.AnchorID = cloneStrPtr(p.AnchorID)
	out.DisplayPoint = cloneGeometry(p.DisplayPoint)
	return &out
}

func (p *DetailProps) CloneProps() Props {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}

func (p *SourceProps) CloneProps() Props {
	if p == nil {
		return nil
	}
	return &SourceProps{}
}
